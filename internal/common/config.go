// Package common provides shared utilities for Carteira
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Carteira
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Fetch       FetchConfig     `toml:"fetch"`
	Market      MarketConfig    `toml:"market"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// GetReadTimeout returns the HTTP request read timeout
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDurationOr(c.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the HTTP response write timeout. A mobile refresh
// walks the ticker queue serially, so this must outlast a full queue pass.
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDurationOr(c.WriteTimeout, 2*time.Minute)
}

// GetShutdownTimeout returns how long in-flight requests get to drain
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDurationOr(c.ShutdownTimeout, 10*time.Second)
}

// StorageConfig selects the storage backend. "memory" keeps portfolio
// definitions and snapshots in process (seeded from SeedFile); "surrealdb"
// persists them in SurrealDB.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	SeedFile  string `toml:"seed_file"`
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Brapi BrapiConfig `toml:"brapi"`
}

// BrapiConfig holds quote API configuration
type BrapiConfig struct {
	BaseURL   string `toml:"base_url"`
	Token     string `toml:"token"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *BrapiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// FetchConfig tunes the mobile fetch path: the per-ticker queue and the
// backoff applied between request variants of one ticker.
type FetchConfig struct {
	Workers        int    `toml:"workers"`
	TickerDelay    string `toml:"ticker_delay"`
	BackoffInitial string `toml:"backoff_initial"`
	BackoffMax     string `toml:"backoff_max"`
	UserAgent      string `toml:"user_agent"`
}

// GetTickerDelay returns the pause between two queued tickers
func (c *FetchConfig) GetTickerDelay() time.Duration {
	return parseDurationOr(c.TickerDelay, 300*time.Millisecond)
}

// GetBackoffInitial returns the first wait between two variants
func (c *FetchConfig) GetBackoffInitial() time.Duration {
	return parseDurationOr(c.BackoffInitial, 200*time.Millisecond)
}

// GetBackoffMax returns the upper bound of the wait between two variants
func (c *FetchConfig) GetBackoffMax() time.Duration {
	return parseDurationOr(c.BackoffMax, 2*time.Second)
}

// MarketConfig holds benchmark index configuration
type MarketConfig struct {
	Timeout           string `toml:"timeout"`
	FallbackFile      string `toml:"fallback_file"`
	LiveEnabled       bool   `toml:"live_enabled"`
	SimulationEnabled bool   `toml:"simulation_enabled"`
}

// GetTimeout returns the per-index live fetch timeout
func (c *MarketConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 5*time.Second)
}

// SchedulerConfig holds background refresh configuration
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// GetInterval returns the background refresh interval
func (c *SchedulerConfig) GetInterval() time.Duration {
	return parseDurationOr(c.Interval, 5*time.Minute)
}

// AuthConfig holds bearer token configuration. An empty JWTSecret disables auth.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// Enabled reports whether API requests must carry a bearer token
func (c *AuthConfig) Enabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "15s",
			WriteTimeout:    "2m",
			ShutdownTimeout: "10s",
		},
		Storage: StorageConfig{
			Backend:   "memory",
			SeedFile:  "config/portfolios.toml",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "carteira",
			Database:  "carteira",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			Brapi: BrapiConfig{
				BaseURL:   "https://brapi.dev/api",
				RateLimit: 5,
				Timeout:   "15s",
			},
		},
		Fetch: FetchConfig{
			Workers:        1,
			TickerDelay:    "300ms",
			BackoffInitial: "200ms",
			BackoffMax:     "2s",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		Market: MarketConfig{
			Timeout:           "5s",
			FallbackFile:      "config/fallback.toml",
			LiveEnabled:       true,
			SimulationEnabled: true,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: "5m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/carteira.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if config.Fetch.Workers < 1 {
		config.Fetch.Workers = 1
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CARTEIRA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("CARTEIRA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("CARTEIRA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("CARTEIRA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Token: BRAPI_TOKEN wins over the prefixed variant
	for _, name := range []string{"BRAPI_TOKEN", "CARTEIRA_BRAPI_TOKEN"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.Brapi.Token = v
			break
		}
	}

	if v := os.Getenv("CARTEIRA_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CARTEIRA_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("CARTEIRA_SEED_FILE"); v != "" {
		config.Storage.SeedFile = v
	}

	if v := os.Getenv("CARTEIRA_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if v := os.Getenv("CARTEIRA_SCHEDULER_INTERVAL"); v != "" {
		config.Scheduler.Interval = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
