package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Sync strategies. Upsert keeps history and resolves conflicts on id;
// replace-month deletes the in-progress month and reinserts it wholesale.
const (
	StrategyUpsert       = "upsert"
	StrategyReplaceMonth = "replace_month"
)

// Config holds all configuration settings
type Config struct {
	Server struct {
		Host string `env:"HOST" envDefault:"0.0.0.0"`
		Port int    `env:"PORT" envDefault:"8080"`
	}
	Database struct {
		URL string `env:"DATABASE_URL"`
	}
	HiBot struct {
		AppID     string `env:"HIBOT_APP_ID"`
		AppSecret string `env:"HIBOT_APP_SECRET"`
		BaseURL   string `env:"HIBOT_BASE_URL" envDefault:"https://api.hibot.us/api_external"`
	}
	Sync struct {
		Timezone        string `env:"SYNC_TIMEZONE" envDefault:"America/Argentina/Buenos_Aires"`
		Strategy        string `env:"SYNC_STRATEGY" envDefault:"upsert"`
		IntervalMinutes int    `env:"SYNC_INTERVAL_MINUTES" envDefault:"15"`
	}
	Logging struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
		Path  string `env:"LOG_PATH" envDefault:"logs/sync-server.log"`
	}
}

// Load reads configuration from the environment and validates it.
// Missing required settings are a startup failure, never retried.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.HiBot.AppID == "" {
		return fmt.Errorf("HIBOT_APP_ID is required")
	}
	if c.HiBot.AppSecret == "" {
		return fmt.Errorf("HIBOT_APP_SECRET is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Sync.Strategy != StrategyUpsert && c.Sync.Strategy != StrategyReplaceMonth {
		return fmt.Errorf("invalid sync strategy %q: must be %q or %q", c.Sync.Strategy, StrategyUpsert, StrategyReplaceMonth)
	}
	if c.Sync.IntervalMinutes <= 0 || c.Sync.IntervalMinutes > 59 {
		return fmt.Errorf("sync interval must be between 1 and 59 minutes, got %d", c.Sync.IntervalMinutes)
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("invalid sync timezone %q: %w", c.Sync.Timezone, err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Location resolves the configured civil timezone. Validate must have
// passed for this to be infallible.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultConfig returns a configuration with all defaults filled in and
// placeholder credentials, for use in tests.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Database.URL = "postgres://localhost:5432/hibot?sslmode=disable"
	cfg.HiBot.AppID = "test-app-id"
	cfg.HiBot.AppSecret = "test-app-secret"
	cfg.HiBot.BaseURL = "https://api.hibot.us/api_external"
	cfg.Sync.Timezone = "America/Argentina/Buenos_Aires"
	cfg.Sync.Strategy = StrategyUpsert
	cfg.Sync.IntervalMinutes = 15
	cfg.Logging.Level = "info"
	cfg.Logging.Path = "logs/sync-server.log"
	return cfg
}
