package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# BESS Trader Configuration

[desk]
# Default ticker symbol (NSE symbols use the .NS suffix)
default_symbol = "TATAPOWER.NS"
# Company name used in research prompts
default_company = "Tata Power"
# Trading days of price history for the change calculation
history_days = 5

[llm]
# Completion model (Perplexity sonar models support live web search)
model = "sonar-pro"
# OpenAI-compatible API endpoint
base_url = "https://api.perplexity.ai"
# Request timeout in seconds
timeout_seconds = 60

[server]
# Listen address for the web dashboard
addr = ":8080"

[watch]
# Cron schedule with seconds field (default: 10:00, 12:00 and 14:00 on weekdays)
schedule = "0 0 10,12,14 * * MON-FRI"
# Symbols to analyse on schedule; empty means the desk default
symbols = []
# Skip scheduled runs outside NSE market hours
market_hours_only = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = false
# Notification level: all, decisions_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""
`

const credentialsTemplate = `# BESS Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[perplexity]
# Get a key from perplexity.ai/settings/api
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
