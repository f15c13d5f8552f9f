package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExamplesCmd(app))
	rootCmd.AddCommand(newQuickstartCmd(app))
}

func newExamplesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		Long:  "Display examples of common desk workflows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "One-Shot Dispatch Decision",
					commands: []string{
						"bess-trader quote TATAPOWER.NS    # Check the asset price",
						"bess-trader run                   # Run for the default asset",
						"bess-trader run NTPC.NS           # Run for another symbol",
						"bess-trader run --json            # Machine-readable result",
					},
				},
				{
					title: "Scheduled Operations",
					commands: []string{
						"bess-trader watch --now           # One cycle now, then on schedule",
						"bess-trader watch --symbols TATAPOWER.NS,NTPC.NS",
						"bess-trader watch --schedule \"0 0 10,14 * * MON-FRI\"",
					},
				},
				{
					title: "Web Dashboard",
					commands: []string{
						"bess-trader serve                 # Dashboard on the configured addr",
						"bess-trader serve --addr :9090    # Custom listen address",
					},
				},
				{
					title: "Review Past Decisions",
					commands: []string{
						"bess-trader history list          # Recent sessions",
						"bess-trader history list --symbol TATAPOWER.NS --days 7",
						"bess-trader history show <session-id>",
						"bess-trader history export --out sessions.csv",
					},
				},
				{
					title: "Configuration",
					commands: []string{
						"bess-trader config path           # Where config lives",
						"bess-trader config show           # Current settings",
						"bess-trader config validate       # Check config and credential",
					},
				},
			}

			for _, ex := range examples {
				output.Bold(ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText("# "+strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		Long:  "Step-by-step guide for new users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("BESS Trader - Quick Start Guide")
			output.Println()

			output.Bold("1. Get a Perplexity API key")
			output.Println("   The news and decision stages use the Perplexity search LLM.")
			output.Println("   Create a key at https://www.perplexity.ai/settings/api")
			output.Println()

			output.Bold("2. Configure the credential")
			output.Printf("   %s\n", output.Cyan("export PERPLEXITY_API_KEY=pplx-..."))
			output.Println("   or add it to credentials.toml in the config directory:")
			output.Printf("   %s\n", output.Cyan("bess-trader config path"))
			output.Println()

			output.Bold("3. Run your first session")
			output.Printf("   %s\n", output.Cyan("bess-trader run"))
			output.Println("   Market data degrades gracefully; a bad ticker still produces")
			output.Println("   a decision from the news intel alone.")
			output.Println()

			output.Bold("4. Keep it running")
			output.Printf("   %s  runs on the configured schedule\n", output.Cyan("bess-trader watch"))
			output.Printf("   %s  serves the live dashboard\n", output.Cyan("bess-trader serve"))
			output.Println()

			output.Dim("Run 'bess-trader examples' for more workflows")
			return nil
		},
	}
}
