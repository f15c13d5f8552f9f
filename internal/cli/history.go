package cli

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
	"bess-trader/internal/signal"
	"bess-trader/internal/store"
)

// addHistoryCommands adds the session history commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past dispatch sessions",
		Long:  "List, inspect, and export dispatch sessions from the local store.",
	}

	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	cmd.AddCommand(newHistoryExportCmd(app))

	rootCmd.AddCommand(cmd)
}

func requireStore(app *App) error {
	if app.Store == nil {
		return apperrors.New("history requires the local store, which failed to initialize")
	}
	return nil
}

func historyFilter(cmd *cobra.Command) store.SessionFilter {
	filter := store.SessionFilter{}
	filter.Symbol, _ = cmd.Flags().GetString("symbol")
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -days)
	}
	return filter
}

func addHistoryFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("symbol", "", "filter by ticker symbol")
	cmd.Flags().Int("limit", 20, "maximum number of sessions")
	cmd.Flags().Int("days", 0, "only sessions from the last N days")
}

func newHistoryListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent dispatch sessions",
		Example: `  bess-trader history list
  bess-trader history list --symbol TATAPOWER.NS --days 7
  bess-trader history list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}

			output := NewOutput(cmd)
			sessions, err := app.Store.GetSessions(cmd.Context(), historyFilter(cmd))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if sessions == nil {
					sessions = []models.SessionRecord{}
				}
				return output.JSON(sessions)
			}

			if len(sessions) == 0 {
				output.Dim("No sessions found.")
				return nil
			}

			table := NewTable(output, "STARTED", "SYMBOL", "SIGNAL", "HEADLINE", "TOOK", "ID")
			for _, rec := range sessions {
				sig := signal.Classify(rec.Recommendation)
				table.AddRow(
					rec.StartedAt.Local().Format("02-Jan 15:04"),
					rec.Symbol,
					SignalBadge(sig),
					Excerpt(signal.Headline(rec.Recommendation), 48),
					FormatDuration(rec.Duration()),
					rec.ID[:8],
				)
			}
			table.Render()
			return nil
		},
	}

	addHistoryFilterFlags(cmd)
	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one dispatch session in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}

			output := NewOutput(cmd)
			rec, err := app.Store.GetSessionByID(cmd.Context(), args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrSessionNotFound) {
					output.Error("No session with id %s", args[0])
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(rec)
			}

			DispatchPanel(output, rec)
			output.Println()
			output.Bold("News Intel")
			output.Println(rec.NewsSummary)
			output.Println()
			output.Dim("Session %s, started %s", rec.ID, rec.StartedAt.Local().Format("02-Jan-2006 15:04:05"))
			return nil
		},
	}
}

// sessionCSVRow is the flat CSV shape of a dispatch session.
type sessionCSVRow struct {
	ID             string `csv:"id"`
	Symbol         string `csv:"symbol"`
	CompanyName    string `csv:"company_name"`
	Signal         string `csv:"signal"`
	Headline       string `csv:"headline"`
	PriceSummary   string `csv:"price_summary"`
	NewsSummary    string `csv:"news_summary"`
	Recommendation string `csv:"recommendation"`
	StartedAt      string `csv:"started_at"`
	CompletedAt    string `csv:"completed_at"`
}

func csvRows(sessions []models.SessionRecord) []*sessionCSVRow {
	rows := make([]*sessionCSVRow, 0, len(sessions))
	for _, rec := range sessions {
		row := &sessionCSVRow{
			ID:             rec.ID,
			Symbol:         rec.Symbol,
			CompanyName:    rec.CompanyName,
			Signal:         string(signal.Classify(rec.Recommendation)),
			Headline:       signal.Headline(rec.Recommendation),
			PriceSummary:   rec.PriceSummary,
			NewsSummary:    rec.NewsSummary,
			Recommendation: rec.Recommendation,
			StartedAt:      rec.StartedAt.Format(time.RFC3339),
		}
		if !rec.CompletedAt.IsZero() {
			row.CompletedAt = rec.CompletedAt.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

func newHistoryExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export dispatch sessions as CSV",
		Example: `  bess-trader history export --out sessions.csv
  bess-trader history export --symbol TATAPOWER.NS --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}

			output := NewOutput(cmd)
			sessions, err := app.Store.GetSessions(cmd.Context(), historyFilter(cmd))
			if err != nil {
				return err
			}

			rows := csvRows(sessions)

			outPath, _ := cmd.Flags().GetString("out")
			if outPath == "" {
				return gocsv.Marshal(rows, cmd.OutOrStdout())
			}

			f, err := os.Create(outPath)
			if err != nil {
				return apperrors.Wrapf(err, "creating %s", outPath)
			}
			defer f.Close()

			if err := gocsv.Marshal(rows, f); err != nil {
				return apperrors.Wrapf(err, "writing %s", outPath)
			}
			output.Success("✓ Exported %d sessions to %s", len(rows), outPath)
			return nil
		},
	}

	addHistoryFilterFlags(cmd)
	cmd.Flags().String("out", "", "output file (default: stdout)")
	return cmd
}
