package cli

import (
	"context"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bess-trader/internal/config"
	"bess-trader/internal/logging"
	"bess-trader/internal/models"
	"bess-trader/internal/sched"
	"bess-trader/internal/signal"
	"bess-trader/pkg/utils"
)

// addWatchCommands adds the scheduled watch command.
func addWatchCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWatchCmd(app))
}

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline on a schedule",
		Long: `Run the dispatch pipeline for the watched symbols on a cron schedule.

Each cycle runs every watched symbol through the full pipeline, stores
the session, and sends notifications for the decisions. With market
hours enabled, cycles outside NSE trading hours are skipped.`,
		Example: `  bess-trader watch
  bess-trader watch --symbols TATAPOWER.NS,NTPC.NS --now
  bess-trader watch --schedule "0 30 9-15 * * MON-FRI"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			if err := app.LLM.Ready(); err != nil {
				output.Error("No API credential configured.")
				output.Dim("Set PERPLEXITY_API_KEY or add the key to %s/credentials.toml", config.DefaultConfigDir())
				return err
			}

			schedule := app.Config.Watch.Schedule
			if v, _ := cmd.Flags().GetString("schedule"); v != "" {
				schedule = v
			}

			symbols := app.Config.Watch.Symbols
			if v, _ := cmd.Flags().GetString("symbols"); v != "" {
				symbols = splitSymbols(v)
			}
			if len(symbols) == 0 {
				symbols = []string{app.Config.Desk.DefaultSymbol}
			}

			app.Hub.Start(ctx)
			defer app.Hub.Stop()

			scheduler := sched.New(app.Logger)
			if err := scheduler.AddJob(schedule, "watch", func() {
				runWatchCycle(ctx, app, output, symbols)
			}); err != nil {
				return err
			}

			output.Bold("Watching %s", strings.Join(symbols, ", "))
			output.Printf("  Schedule:     %s\n", schedule)
			output.Printf("  Market hours: %v\n", app.Config.Watch.MarketHoursOnly)
			output.Printf("  Market now:   %s\n", output.MarketStatus(string(utils.GetMarketStatus())))
			output.Println()

			if now, _ := cmd.Flags().GetBool("now"); now {
				runWatchCycle(ctx, app, output, symbols)
			}

			scheduler.Start()
			defer scheduler.Stop()
			output.Dim("Press Ctrl+C to stop")

			quit := make(chan os.Signal, 1)
			ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			output.Println()
			output.Info("Stopping watch...")
			return nil
		},
	}

	cmd.Flags().String("schedule", "", "cron schedule with seconds (default from config)")
	cmd.Flags().String("symbols", "", "comma-separated symbols (default from config)")
	cmd.Flags().Bool("now", false, "run one cycle immediately")
	return cmd
}

func splitSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	return symbols
}

// runWatchCycle runs every watched symbol through the pipeline once.
func runWatchCycle(ctx context.Context, app *App, output *Output, symbols []string) {
	if app.Config.Watch.MarketHoursOnly && !utils.IsMarketOpen() {
		next := utils.NextMarketOpen(time.Now())
		app.Logger.Info().Time("next_open", next).Msg("Market closed, skipping watch cycle")
		output.Dim("%s market closed; next open %s", time.Now().Format("15:04:05"), next.Format("02-Jan 15:04"))
		return
	}

	for _, symbol := range symbols {
		company := resolveCompany(ctx, app, symbol, "")
		rec := models.NewSessionRecord(symbol, company)

		done, err := app.Pipeline.Execute(ctx, rec)
		if err != nil {
			app.Logger.Error().Err(err).Str("symbol", symbol).Msg("Watch run failed")
			output.Error("✗ %s: %v", symbol, err)
			if nerr := app.Notifier.SendError(ctx, err, "watch run "+symbol); nerr != nil {
				app.Logger.Warn().Err(nerr).Msg("Error notification failed")
			}
			continue
		}

		sig := signal.Classify(done.Recommendation)
		logging.LogSignal(app.Logger, symbol, string(sig), signal.Headline(done.Recommendation))

		if app.Store != nil {
			if err := app.Store.SaveSession(ctx, done); err != nil {
				app.Logger.Warn().Err(err).Str("session_id", done.ID).Msg("Saving session failed")
			}
		}
		if err := app.Notifier.SendDecision(ctx, done, sig); err != nil {
			app.Logger.Warn().Err(err).Msg("Decision notification failed")
		}

		output.Printf("%s %s %-14s %s  %s\n",
			time.Now().Format("15:04:05"),
			signalMarker(sig),
			symbol,
			SignalBadge(sig),
			Excerpt(signal.Headline(done.Recommendation), 64))
	}
}
