// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"stockbi/internal/core/period"
	"stockbi/internal/domain/aggregation"
)

// Analytics store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"stockbi"`
		Env  string `envconfig:"APP_ENV" default:"development"`
	}

	HTTP struct {
		Port            int           `envconfig:"APP_PORT" default:"8080"`
		ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
		IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s"`
	}

	// OperationalDB holds products, categories and the ledger. An empty URL
	// runs everything in memory.
	OperationalDB struct {
		URL              string        `envconfig:"DATABASE_URL"`
		MaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"20"`
		MinConns         int32         `envconfig:"DB_MIN_CONNS" default:"2"`
		StatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"30s"`
		LockTimeout      time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"5s"`
	}

	// AnalyticsDB.URL defaults to DATABASE_URL; the rows then live in
	// their own schema.
	AnalyticsDB struct {
		Driver    string `envconfig:"ANALYTICS_DRIVER" default:"postgres"`
		URL       string `envconfig:"ANALYTICS_DATABASE_URL"`
		SQLiteDSN string `envconfig:"ANALYTICS_SQLITE_DSN" default:"file:analytics.db?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"`
	}

	Redis struct {
		URL      string        `envconfig:"REDIS_URL"`
		Password string        `envconfig:"REDIS_PASSWORD"`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		Prefix   string        `envconfig:"REPORT_CACHE_PREFIX" default:"stockbi:reports"`
		TTL      time.Duration `envconfig:"REPORT_CACHE_TTL" default:"5m"`
	}

	Aggregation struct {
		Schedule      string        `envconfig:"AGGREGATION_SCHEDULE" default:"0 */15 * * * *"`
		MarginMode    string        `envconfig:"AGGREGATION_MARGIN_MODE" default:"weighted"`
		Concurrency   int           `envconfig:"AGGREGATION_CONCURRENCY" default:"4"`
		Matrix        string        `envconfig:"AGGREGATION_MATRIX"`
		ClosePrevious bool          `envconfig:"AGGREGATION_CLOSE_PREVIOUS" default:"true"`
		Timeout       time.Duration `envconfig:"AGGREGATION_TIMEOUT" default:"10m"`
	}

	Log struct {
		Level string `envconfig:"LOG_LEVEL" default:"info"`
	}
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.AnalyticsDB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("ANALYTICS_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.AnalyticsDB.Driver)
	}
	if _, err := aggregation.ParseMarginMode(c.Aggregation.MarginMode); err != nil {
		return fmt.Errorf("AGGREGATION_MARGIN_MODE: %w", err)
	}
	if _, err := aggregation.ParseMatrix(c.Aggregation.Matrix); err != nil {
		return fmt.Errorf("AGGREGATION_MATRIX: %w", err)
	}
	if c.Aggregation.Concurrency < 1 {
		return fmt.Errorf("AGGREGATION_CONCURRENCY must be positive")
	}
	return nil
}

// InMemory reports whether the operational store is kept in memory.
func (c *Config) InMemory() bool {
	return c.OperationalDB.URL == ""
}

// Development reports whether APP_ENV is development.
func (c *Config) Development() bool {
	return c.App.Env == "development"
}

// AnalyticsURL is the Postgres DSN for aggregation rows.
func (c *Config) AnalyticsURL() string {
	if c.AnalyticsDB.URL != "" {
		return c.AnalyticsDB.URL
	}
	return c.OperationalDB.URL
}

// MarginMode returns the parsed margin mode.
func (c *Config) MarginMode() aggregation.MarginMode {
	mode, _ := aggregation.ParseMarginMode(c.Aggregation.MarginMode)
	return mode
}

// Matrix returns the parsed job matrix.
func (c *Config) Matrix() map[aggregation.Class][]period.Kind {
	m, _ := aggregation.ParseMatrix(c.Aggregation.Matrix)
	return m
}
