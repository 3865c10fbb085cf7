package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// It is composed of smaller structs that represent different concerns of the
// system: the Polygon data source, the Upstash Redis cache, the optional
// Postgres run store, and the HTTP server.
//
// Example ENV equivalent:
//
//	POLYGON_API_KEY=secret
//	TICKER_BATCH_SIZE=500
//	SNAPSHOT_CONCURRENCY=5
//	REDIS_URL=https://my-cache.upstash.io
//	REDIS_TOKEN=token
//	PL_TIMEZONE=America/New_York
type Config struct {
	Polygon  PolygonConfig  // Polygon reference/snapshot API settings
	Redis    RedisConfig    // Upstash Redis REST pipeline settings
	Postgres PostgresConfig // Optional PostgreSQL run store
	Server   ServerConfig   // HTTP server configuration (api mode)
	Timezone string         // IANA zone used to stamp the as-of date
}

// PolygonConfig defines how the ticker universe is discovered and how
// snapshots are fetched.
//
// Fields:
//   - APIKey: required credential; Load fails without it.
//   - IncludeOTC: whether snapshot requests include OTC securities.
//   - BatchSize: maximum tickers per snapshot request.
//   - Concurrency: maximum snapshot requests in flight at once.
//   - TickerLimit: optional cap on the discovered universe (0 = no cap).
//   - MaxPages: optional safety cap on discovery pagination (0 = no cap).
//   - ConnectTimeout / ReadTimeout: per-request HTTP timeouts.
type PolygonConfig struct {
	APIKey         string
	IncludeOTC     bool
	BatchSize      int
	Concurrency    int
	TickerLimit    int
	MaxPages       int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// RedisConfig defines the Upstash REST endpoint the daily P&L entries are
// published to. Leaving URL or Token empty disables publishing entirely.
type RedisConfig struct {
	URL          string
	Token        string
	PipelineSize int
	KeyPrefix    string
	TTLSeconds   int // <= 0 disables per-key expiry
}

// PostgresConfig defines connection details for the optional run store.
// An empty Host disables persistence; collect mode still works without it.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql
}

// Enabled reports whether a Postgres run store is configured.
func (p PostgresConfig) Enabled() bool { return p.Host != "" }

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// Load reads configuration from a .env file (if present) and environment
// variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// The returned Config is a plain value constructed once at process start and
// passed down explicitly; nothing in this package holds global state.
//
// Returns an error when POLYGON_API_KEY is unset — the one credential the
// pipeline cannot run without. The error surfaces before any network
// activity happens.
func Load() (Config, error) {
	v := viper.New()

	// Default values mirror the production deployment.
	v.SetDefault("INCLUDE_OTC", false)
	v.SetDefault("TICKER_BATCH_SIZE", 500)
	v.SetDefault("SNAPSHOT_CONCURRENCY", 5)
	v.SetDefault("TICKER_LIMIT", 0)
	v.SetDefault("POLYGON_MAX_PAGES", 0)
	v.SetDefault("HTTP_CONNECT_TIMEOUT", "20s")
	v.SetDefault("HTTP_READ_TIMEOUT", "60s")

	v.SetDefault("REDIS_PIPELINE_SIZE", 50)
	v.SetDefault("REDIS_KEY_PREFIX", "stock:pl_daily")
	v.SetDefault("REDIS_TTL_SECONDS", 86400)

	v.SetDefault("PL_TIMEZONE", "America/New_York")

	v.SetDefault("SERVER_PORT", "8080")

	v.SetDefault("POSTGRES_HOST", "")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "plpulse")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	// Optionally read from .env if present (common in local dev).
	v.SetConfigFile(".env")
	_ = v.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically.
	v.AutomaticEnv()

	cfg := Config{
		Polygon: PolygonConfig{
			APIKey:         v.GetString("POLYGON_API_KEY"),
			IncludeOTC:     v.GetBool("INCLUDE_OTC"),
			BatchSize:      clampMin(v.GetInt("TICKER_BATCH_SIZE"), 1),
			Concurrency:    clampMin(v.GetInt("SNAPSHOT_CONCURRENCY"), 1),
			TickerLimit:    clampMin(v.GetInt("TICKER_LIMIT"), 0),
			MaxPages:       clampMin(v.GetInt("POLYGON_MAX_PAGES"), 0),
			ConnectTimeout: v.GetDuration("HTTP_CONNECT_TIMEOUT"),
			ReadTimeout:    v.GetDuration("HTTP_READ_TIMEOUT"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			Token:        v.GetString("REDIS_TOKEN"),
			PipelineSize: clampMin(v.GetInt("REDIS_PIPELINE_SIZE"), 1),
			KeyPrefix:    v.GetString("REDIS_KEY_PREFIX"),
			TTLSeconds:   v.GetInt("REDIS_TTL_SECONDS"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Timezone: v.GetString("PL_TIMEZONE"),
	}

	if cfg.Polygon.APIKey == "" {
		return Config{}, fmt.Errorf("POLYGON_API_KEY is required; set it via environment variable or .env file")
	}

	// Construct Postgres DSN (used by database/sql) only when configured.
	if cfg.Postgres.Enabled() {
		cfg.Postgres.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.DBName,
			cfg.Postgres.SSLMode,
		)
	}

	return cfg, nil
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
