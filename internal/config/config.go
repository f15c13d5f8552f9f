// Package config provides configuration management for the trading desk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "bess-trader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Desk          DeskConfig         `mapstructure:"desk"`
	LLM           LLMConfig          `mapstructure:"llm"`
	Server        ServerConfig       `mapstructure:"server"`
	Watch         WatchConfig        `mapstructure:"watch"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// DeskConfig holds the defaults for a pipeline run.
type DeskConfig struct {
	DefaultSymbol  string `mapstructure:"default_symbol"`
	DefaultCompany string `mapstructure:"default_company"`
	HistoryDays    int    `mapstructure:"history_days"`
}

// LLMConfig holds the completion backend configuration.
type LLMConfig struct {
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig holds the web server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig holds the scheduled run configuration.
type WatchConfig struct {
	Schedule        string   `mapstructure:"schedule"`
	Symbols         []string `mapstructure:"symbols"`
	MarketHoursOnly bool     `mapstructure:"market_hours_only"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, decisions_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Credentials holds API credentials.
type Credentials struct {
	Perplexity PerplexityCredentials `mapstructure:"perplexity"`
}

// PerplexityCredentials holds the Perplexity API credential.
type PerplexityCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/bess-trader"
	}
	return filepath.Join(home, ".config", "bess-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadDeskConfig(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadDeskConfig(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("desk.default_symbol", "TATAPOWER.NS")
	v.SetDefault("desk.default_company", "Tata Power")
	v.SetDefault("desk.history_days", 5)
	v.SetDefault("llm.model", "sonar-pro")
	v.SetDefault("llm.base_url", "https://api.perplexity.ai")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("watch.schedule", "0 0 10,12,14 * * MON-FRI")
	v.SetDefault("watch.market_hours_only", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: seed a commented template and continue with defaults.
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// The key may still arrive via environment, so a missing file
			// only seeds a template.
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		cfg.Credentials.Perplexity.APIKey = v
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv("BESS_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
	}
	if v := os.Getenv("BESS_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Desk.DefaultSymbol == "" {
		return fmt.Errorf("%w: desk.default_symbol must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.Desk.HistoryDays < 1 || c.Desk.HistoryDays > 30 {
		return fmt.Errorf("%w: desk.history_days must be between 1 and 30", apperrors.ErrConfigInvalid)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("%w: llm.base_url must not be empty", apperrors.ErrConfigInvalid)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: llm.timeout_seconds must be positive", apperrors.ErrConfigInvalid)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", apperrors.ErrConfigInvalid)
	}

	if c.Notifications.Email.Enabled && c.Notifications.Email.SMTPHost == "" {
		return fmt.Errorf("%w: notifications.email.smtp_host required when email is enabled", apperrors.ErrConfigInvalid)
	}

	return nil
}
