package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mail relay
	MailRelayURL      string
	MailSender        string
	MailAPIKey        string
	NotifyConcurrency int
	NotifyTimeout     time.Duration

	// Share links
	ShareTTL time.Duration

	// Writes allowed per client per minute
	WriteRateLimit int

	// Google Sheets publishing (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/mess.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mess"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "bill_notifications"),

		MailRelayURL:      getEnv("MAIL_RELAY_URL", "https://api.smtp2go.com/v3/email/send"),
		MailSender:        getEnv("MAIL_SENDER", ""),
		MailAPIKey:        getEnv("MAIL_API_KEY", ""),
		NotifyConcurrency: getEnvInt("NOTIFY_CONCURRENCY", 4),
		NotifyTimeout:     getEnvDuration("NOTIFY_TIMEOUT", 15*time.Second),

		ShareTTL: getEnvDuration("SHARE_TTL", 24*time.Hour),

		WriteRateLimit: getEnvInt("RATE_LIMIT_WRITES_PER_MINUTE", 300),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Bills"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}
}

// MailEnabled reports whether outbound bill emails can be sent.
func (c *Config) MailEnabled() bool {
	return c.MailRelayURL != "" && c.MailSender != "" && c.MailAPIKey != ""
}

// SheetsEnabled reports whether calculations are published to a spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.MailRelayURL != "" {
		if u, err := url.Parse(c.MailRelayURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid mail relay URL '%s': must be http or https", c.MailRelayURL))
		}
	}
	if (c.MailSender == "") != (c.MailAPIKey == "") {
		errors = append(errors, "MAIL_SENDER and MAIL_API_KEY must be provided together")
	}

	if c.NotifyConcurrency < 1 || c.NotifyConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid notify concurrency %d: must be between 1 and 64", c.NotifyConcurrency))
	}
	if c.NotifyTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid notify timeout %v: must be at least 1 second", c.NotifyTimeout))
	}

	if c.ShareTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid share TTL %v: must be at least 1 minute", c.ShareTTL))
	} else if c.ShareTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid share TTL %v: must be at most 30 days", c.ShareTTL))
	}

	if c.WriteRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid write rate limit %d: must be at least 1 per minute", c.WriteRateLimit))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheet publishing")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
