package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"finform/internal/log"
)

const (
	JournalNone   = "none"
	JournalSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Analysis service
	AnalyzerBaseURL string
	AnalyzerTimeout time.Duration

	// Intake
	SalaryFloor decimal.Decimal

	// Rendering
	CurrencySymbol string
	CurrencyLocale string

	// Sessions and rate limiting
	SessionTTL        time.Duration
	SessionMaxEntries int
	RateLimitRPM      int

	// Journal
	JournalBackend string
	SQLiteDBPath   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AnalyzerBaseURL: getEnv("ANALYZER_BASE_URL", "http://localhost:8000"),
		AnalyzerTimeout: getEnvDuration("ANALYZER_TIMEOUT", 60*time.Second),

		SalaryFloor: getEnvDecimal("SALARY_FLOOR", decimal.NewFromInt(100000)),

		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),
		CurrencyLocale: getEnv("CURRENCY_LOCALE", "en-IN"),

		SessionTTL:        getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionMaxEntries: getEnvInt("SESSION_MAX_ENTRIES", 1000),
		RateLimitRPM:      getEnvInt("RATE_LIMIT_RPM", 60),

		JournalBackend: getEnv("JOURNAL_BACKEND", JournalNone),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/finform.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finform"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "analysis_journal"),
	}
}

// JournalEnabled reports whether submission outcomes are recorded.
func (c *Config) JournalEnabled() bool {
	return c.JournalBackend == JournalSQLite
}

// PublishesJournal reports whether the web app hands records to the broker
// instead of writing them itself.
func (c *Config) PublishesJournal() bool {
	return c.JournalEnabled() && c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.AnalyzerBaseURL == "" {
		errors = append(errors, "analyzer base URL cannot be empty")
	} else if u, err := url.Parse(c.AnalyzerBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid analyzer base URL '%s': %v", c.AnalyzerBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid analyzer base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	} else if u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid analyzer base URL '%s': missing host", c.AnalyzerBaseURL))
	}

	if c.AnalyzerTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid analyzer timeout %v: must not be negative", c.AnalyzerTimeout))
	}

	if c.SalaryFloor.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid salary floor %s: must not be negative", c.SalaryFloor))
	}

	if c.CurrencySymbol == "" {
		errors = append(errors, "currency symbol cannot be empty")
	}
	if _, err := language.Parse(c.CurrencyLocale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency locale '%s': %v", c.CurrencyLocale, err))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max entries %d: must be at least 1", c.SessionMaxEntries))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	switch c.JournalBackend {
	case JournalNone:
	case JournalSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite journal")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid journal backend '%s': must be one of [%s %s]", c.JournalBackend, JournalNone, JournalSQLite))
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

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the extra settings the journal worker needs.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the journal worker")
	}
	if c.JournalBackend != JournalSQLite {
		errors = append(errors, fmt.Sprintf("journal backend must be '%s' for the journal worker", JournalSQLite))
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
