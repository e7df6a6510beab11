package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the assistant service
// Environment variables are automatically parsed from CENTSIBLE_ prefix
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// Derived or override driver
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	APIKey   string `envconfig:"API_KEY" default:""`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// SQLite Configuration
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/centsible.db"`

	// Decision engine Configuration
	GeminiAPIKey        string  `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel         string  `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" default:"0.5"`

	// Field extraction sidecar; empty means the built-in parser is used
	ExtractorURL     string        `envconfig:"EXTRACTOR_URL" default:""`
	ExtractorTimeout time.Duration `envconfig:"EXTRACTOR_TIMEOUT" default:"5s"`

	// Conversation state lifetimes
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"5m"`
	MemoryTTL     time.Duration `envconfig:"MEMORY_TTL" default:"10m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	// Health probing and startup bootstrap
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	BootstrapTimeoutSeconds   int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`

	// Expense defaults
	DefaultCurrency string `envconfig:"DEFAULT_CURRENCY" default:"USD"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev":
		defaultDB = "postgres"
	case "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	if c.SessionTTL <= 0 || c.MemoryTTL <= 0 {
		return fmt.Errorf("session and memory TTLs must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Environment variables should be prefixed with CENTSIBLE_
// Example: CENTSIBLE_HTTP_PORT, CENTSIBLE_GEMINI_API_KEY
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CENTSIBLE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("gemini_model", cfg.GeminiModel).
		Float64("confidence_threshold", cfg.ConfidenceThreshold).
		Dur("session_ttl", cfg.SessionTTL).
		Dur("memory_ttl", cfg.MemoryTTL).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Str("extractor_url", cfg.ExtractorURL).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment: EnvTesting,
	}

	cfg.HTTPPort = 8080

	cfg.BuildTarget = "local"
	cfg.DBDriver = "sqlite"
	cfg.SQLitePath = ""

	cfg.GeminiModel = "gemini-2.5-flash"
	cfg.ConfidenceThreshold = 0.5

	cfg.SessionTTL = 5 * time.Minute
	cfg.MemoryTTL = 10 * time.Minute
	cfg.SweepInterval = time.Minute

	cfg.HealthIntervalSeconds = 1
	cfg.HealthProbeTimeoutSeconds = 2
	cfg.BootstrapTimeoutSeconds = 30

	cfg.DefaultCurrency = "USD"

	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
