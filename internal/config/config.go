package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/vestia/catalog-service/pkg/config"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOG_HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"product_user"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"product_password"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"product_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Search engine: "elasticsearch" or "memory"
	SearchEngine       string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	// Upper bound for a single index request; on expiry the read path falls
	// back to the record store.
	SearchTimeoutMs int `env:"SEARCH_TIMEOUT_MS" envDefault:"2000"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Seeding
	SeedCSVPath string `env:"SEED_CSV_PATH" envDefault:"data/products.csv"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.PostgresHost == "" {
		return nil, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.PostgresUser == "" {
		return nil, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.SearchEngine != "elasticsearch" && cfg.SearchEngine != "memory" {
		return nil, fmt.Errorf("SEARCH_ENGINE must be elasticsearch or memory, got %q", cfg.SearchEngine)
	}
	if cfg.SearchTimeoutMs < 1 {
		return nil, fmt.Errorf("SEARCH_TIMEOUT_MS must be positive, got %d", cfg.SearchTimeoutMs)
	}
	return cfg, nil
}

// SearchTimeout returns the index request timeout as a duration.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMs) * time.Millisecond
}
