package cli

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"bess-trader/internal/config"
	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/logging"
	"bess-trader/internal/models"
	"bess-trader/internal/signal"
	"bess-trader/pkg/utils"
)

// addRunCommands adds the pipeline and market data commands.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [symbol]",
		Short: "Run the dispatch pipeline for a symbol",
		Long: `Run the full dispatch pipeline: market data, news intelligence, and
the charge/discharge decision.

With no arguments the configured default asset is used. A market data
failure degrades the run and the decision is made on the degraded
summary; news and decision failures abort the run.`,
		Example: `  bess-trader run
  bess-trader run TATAPOWER.NS
  bess-trader run NTPC.NS --company "NTPC Limited"
  bess-trader run --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := logging.WithLogger(cmd.Context(), app.Logger)

			symbol := app.Config.Desk.DefaultSymbol
			if len(args) > 0 {
				symbol = args[0]
			}
			company, _ := cmd.Flags().GetString("company")
			company = resolveCompany(ctx, app, symbol, company)

			rec := models.NewSessionRecord(symbol, company)
			if err := rec.Validate(); err != nil {
				return err
			}

			if err := app.LLM.Ready(); err != nil {
				output.Error("No API credential configured.")
				output.Dim("Set PERPLEXITY_API_KEY or add the key to %s/credentials.toml", config.DefaultConfigDir())
				return err
			}

			app.Hub.Start(ctx)
			defer app.Hub.Stop()

			var wg sync.WaitGroup
			if !output.IsJSON() {
				events := app.Hub.Subscribe(rec.ID)
				wg.Add(1)
				go func() {
					defer wg.Done()
					renderProgress(output, events)
				}()
			}

			done, err := app.Pipeline.Execute(ctx, rec)
			wg.Wait()
			if err != nil {
				return err
			}

			sig := signal.Classify(done.Recommendation)
			logging.LogSignal(app.Logger, done.Symbol, string(sig), signal.Headline(done.Recommendation))

			if app.Store != nil {
				if err := app.Store.SaveSession(ctx, done); err != nil {
					app.Logger.Warn().Err(err).Msg("Saving session failed")
				}
			}
			if err := app.Notifier.SendDecision(ctx, done, sig); err != nil {
				app.Logger.Warn().Err(err).Msg("Decision notification failed")
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"record":   done,
					"signal":   string(sig),
					"headline": signal.Headline(done.Recommendation),
				})
			}

			output.Println()
			DispatchPanel(output, done)
			return nil
		},
	}

	cmd.Flags().String("company", "", "company display name (default: resolved from the symbol)")
	return cmd
}

// renderProgress prints stage events until the run's terminal event.
func renderProgress(output *Output, events <-chan models.ProgressEvent) {
	for ev := range events {
		switch ev.Status {
		case models.StageStarted:
			if ev.Stage == models.StagePipeline {
				output.Info("Session started for %s", ev.Message)
			} else {
				output.Dim("  %s...", stageLabel(ev.Stage))
			}
		case models.StageDegraded:
			output.Warning("  ⚠ %s degraded: %s", stageLabel(ev.Stage), ev.Message)
		case models.StageFailed:
			if ev.Stage != models.StagePipeline {
				output.Error("  ✗ %s failed: %s", stageLabel(ev.Stage), ev.Message)
			}
		case models.StageCompleted:
			if ev.Stage != models.StagePipeline {
				output.Success("  ✓ %s", stageLabel(ev.Stage))
			}
		}
		if ev.Terminal() {
			return
		}
	}
}

func stageLabel(stage string) string {
	switch stage {
	case "market_data":
		return "market data"
	case "news":
		return "news intelligence"
	case "decision":
		return "dispatch decision"
	default:
		return stage
	}
}

// resolveCompany picks the display name for a run. An explicit company
// wins, then the configured default for the default symbol, then a lookup
// against the market data source.
func resolveCompany(ctx context.Context, app *App, symbol, company string) string {
	if company != "" {
		return company
	}
	if symbol == app.Config.Desk.DefaultSymbol && app.Config.Desk.DefaultCompany != "" {
		return app.Config.Desk.DefaultCompany
	}
	return app.Market.ResolveCompany(ctx, symbol)
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Get a market quote for a symbol",
		Example: `  bess-trader quote TATAPOWER.NS
  bess-trader quote NTPC.NS --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(logging.WithLogger(cmd.Context(), app.Logger), 15*time.Second)
			defer cancel()

			quote, err := app.Market.Quote(ctx, args[0])
			if err != nil {
				return apperrors.Wrapf(err, "fetching quote for %s", args[0])
			}

			if output.IsJSON() {
				return output.JSON(quote)
			}

			name := quote.ShortName
			if name == "" {
				name = quote.Symbol
			}
			output.Bold("%s (%s)", name, quote.Symbol)
			output.Printf("  Price:      %s %s\n",
				utils.FormatIndianCurrency(quote.Price),
				output.FormatChangePercent(quote.ChangePercent))
			output.Printf("  Prev Close: %s\n", utils.FormatIndianCurrency(quote.PreviousClose))
			output.Printf("  Day Range:  %s - %s\n",
				utils.FormatIndianCurrency(quote.DayLow),
				utils.FormatIndianCurrency(quote.DayHigh))
			output.Printf("  52w Range:  %s - %s\n",
				utils.FormatIndianCurrency(quote.FiftyTwoWeekLow),
				utils.FormatIndianCurrency(quote.FiftyTwoWeekHigh))
			output.Printf("  Volume:     %s\n", utils.FormatQuantity(quote.Volume))
			output.Printf("  Market:     %s\n", output.MarketStatus(string(utils.GetMarketStatus())))
			return nil
		},
	}
}
