// Package config loads application configuration from the environment, with
// optional .env support.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/core"
)

type Config struct {
	// Backend API
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Durable session state
	StateDBPath string

	// Display
	Currency string

	// Logging
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8081"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		StateDBPath: getEnv("STATE_DB_PATH", "./data/session.db"),
		Currency:    getEnv("CURRENCY", core.DefaultCurrency),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid API base URL %q: %v", c.APIBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API base URL scheme %q: must be http or https", u.Scheme))
	}

	if c.HTTPTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid HTTP timeout %v: must be at most 5 minutes", c.HTTPTimeout))
	}

	if c.StateDBPath == "" {
		errs = append(errs, "state database path cannot be empty")
	}

	if !core.ValidCurrency(c.Currency) {
		errs = append(errs, fmt.Sprintf("unknown currency code %q", c.Currency))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
