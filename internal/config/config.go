package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DataDir      string

	// Read cache in front of the ledger store; zero disables it
	CacheTTL time.Duration

	// AMQP; an empty URL runs without events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Refresh and export workers
	RefreshInterval time.Duration
	Timezone        string
	BackfillSize    int

	LogLevel string
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneysaver.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneysaver"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", time.Hour),
		Timezone:        getEnv("TIMEZONE", "UTC"),
		BackfillSize:    getEnvInt("EXPORT_BACKFILL_SIZE", 50),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
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

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	// Validate AMQP URL if provided
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

	// Validate refresh worker configuration
	if c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 minute", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.BackfillSize < 0 || c.BackfillSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid export backfill size %d: must be between 0 and 1000", c.BackfillSize))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateExport checks the settings the spreadsheet export worker needs on top
// of Validate.
func (c *Config) ValidateExport() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the export worker")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("export configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location returns the configured timezone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel returns the configured log level, info when unknown.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return level, nil
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
