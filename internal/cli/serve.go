package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bess-trader/internal/web"
)

// addServeCommands adds the web dashboard command.
func addServeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newServeCmd(app))
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard and JSON API",
		Long: `Serve the desk dashboard over HTTP.

The dashboard shows recent sessions, runs the pipeline from a form, and
streams stage progress live over SSE. The same server exposes a JSON API
under /api.`,
		Example: `  bess-trader serve
  bess-trader serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				app.Config.Server.Addr = addr
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app.Hub.Start(ctx)
			defer app.Hub.Stop()

			server := web.NewServer(app.Config, web.Deps{
				Runner:   app.Pipeline,
				Store:    app.Store,
				Hub:      app.Hub,
				Notifier: app.Notifier,
				Resolver: app.Market,
				Logger:   app.Logger,
			})

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			output.Success("✓ Dashboard listening on %s", app.Config.Server.Addr)
			output.Dim("Press Ctrl+C to stop")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			app.Logger.Info().Msg("Shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}
