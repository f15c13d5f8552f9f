// Package cli provides the command-line interface for the trading desk.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bess-trader/internal/agents"
	"bess-trader/internal/config"
	"bess-trader/internal/logging"
	"bess-trader/internal/marketdata"
	"bess-trader/internal/models"
	"bess-trader/internal/notify"
	"bess-trader/internal/store"
	"bess-trader/internal/stream"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.SessionStore
	Market   *marketdata.YahooSource
	LLM      agents.LLMClient
	Hub      *stream.Hub
	Notifier notify.Notifier
	Pipeline *agents.Pipeline
}

// Execute loads configuration, builds the command tree and runs it.
func Execute() {
	configDir := configDirFromArgs(os.Args[1:])
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.DefaultLogConfig())

	rootCmd := NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDirFromArgs scans for --config before cobra parses flags, since
// configuration must load before the command tree is built.
func configDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return config.DefaultConfigDir()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Market: marketdata.NewYahooSource(),
	}

	if !cfg.UI.ColorEnabled {
		DisableColor()
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "desk.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, history will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	// The client is always constructed; Ready() gates the commands that
	// actually need a credential.
	app.LLM = agents.NewClient(agents.ClientConfig{
		APIKey:  cfg.Credentials.Perplexity.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout(),
	})
	logger.Debug().Str("model", cfg.LLM.Model).Msg("LLM client initialized")

	app.Hub = stream.NewHub()
	app.Hub.RegisterConsumer(stream.NewConsumerFunc(func(ev models.ProgressEvent) {
		app.Logger.Debug().
			Str("session_id", ev.SessionID).
			Str("stage", ev.Stage).
			Str("status", string(ev.Status)).
			Msg("Progress event")
	}))

	app.Notifier = notify.NewMultiNotifier(&cfg.Notifications)

	app.Pipeline = agents.NewPipeline(
		agents.NewMarketDataStage(app.Market, cfg.Desk.HistoryDays),
		agents.NewNewsStage(app.LLM),
		agents.NewDecisionStage(app.LLM),
		agents.WithHub(app.Hub),
	)

	rootCmd := &cobra.Command{
		Use:   "bess-trader",
		Short: "BESS Trader - AI dispatch desk for grid battery storage",
		Long: `BESS Trader is an AI operations desk for a grid-connected battery
energy storage system.

Each run fetches recent market data for the linked asset, gathers news
intelligence through a search-grounded LLM, and produces a CHARGE,
DISCHARGE, or HOLD dispatch decision.

Use 'bess-trader help <command>' for more information about a command.
Use 'bess-trader examples' to see common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/bess-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addRunCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	addServeCommands(rootCmd, app)
	addWatchCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("BESS Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			if app.Config.Credentials.Perplexity.APIKey == "" {
				output.Warning("No Perplexity API key set; run and watch will fail preflight")
				output.Dim("Set PERPLEXITY_API_KEY or add it to credentials.toml")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Desk Configuration")
	output.Printf("  Default Symbol:  %s\n", cfg.Desk.DefaultSymbol)
	output.Printf("  Default Company: %s\n", cfg.Desk.DefaultCompany)
	output.Printf("  History Days:    %d\n", cfg.Desk.HistoryDays)
	output.Println()

	output.Bold("LLM Configuration")
	output.Printf("  Model:           %s\n", cfg.LLM.Model)
	output.Printf("  Base URL:        %s\n", cfg.LLM.BaseURL)
	output.Printf("  Timeout:         %ds\n", cfg.LLM.TimeoutSeconds)
	output.Printf("  Credential:      %s\n", credentialState(cfg))
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Println()

	output.Bold("Watch")
	output.Printf("  Schedule:        %s\n", cfg.Watch.Schedule)
	output.Printf("  Symbols:         %s\n", strings.Join(cfg.Watch.Symbols, ", "))
	output.Printf("  Market Hours:    %v\n", cfg.Watch.MarketHoursOnly)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:           %v\n", cfg.Notifications.Email.Enabled)

	return nil
}

func credentialState(cfg *config.Config) string {
	if cfg.Credentials.Perplexity.APIKey == "" {
		return "not set"
	}
	return "set"
}
