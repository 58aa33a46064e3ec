// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and WORLDCUP_* env vars on top.
// - Validation runs once after loading; callers get ErrInvalidConfig wrapped.
package config

import (
	"context"
	"fmt"
	"math/bits"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config contains process configuration.
type Config struct {
	// Env selects development conveniences such as .env loading.
	Env string `koanf:"env" validate:"oneof=development production test"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	DatabaseDriver string `koanf:"database_driver" validate:"oneof=sqlite sqlite3 postgres postgresql"`
	DatabaseDSN    string `koanf:"database_dsn" validate:"required"`
	DatabaseDebug  bool   `koanf:"database_debug"`
	AutoMigrate    bool   `koanf:"auto_migrate"`

	// MaxBracketSize is the largest bracket a caller may request; a power of two.
	MaxBracketSize int `koanf:"max_bracket_size" validate:"min=2,max=1024"`

	// BracketTTLSeconds is how long an issued bracket accepts a result.
	BracketTTLSeconds int `koanf:"bracket_ttl_seconds" validate:"min=1"`

	RegistryBackend    string `koanf:"registry_backend" validate:"oneof=memory redis"`
	RegistryMaxEntries int    `koanf:"registry_max_entries" validate:"min=1"`
	RedisURL           string `koanf:"redis_url" validate:"required_if=RegistryBackend redis"`

	// QueueSize bounds the projection queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of projection workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// DedupeSize sets how many committed bracket ids are remembered in memory.
	DedupeSize int `koanf:"dedupe_size" validate:"min=1"`

	// LeaderboardResyncSeconds is how often the leaderboard is rebuilt from the
	// stats table, which is how a reconcile run elsewhere reaches this process.
	// Zero disables it.
	LeaderboardResyncSeconds int `koanf:"leaderboard_resync_seconds" validate:"gte=0"`

	// MaxRankingLimit caps GET /worldcup/ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit" validate:"min=1"`

	// JWTSecret verifies participant bearer tokens. Empty disables authenticated submits.
	JWTSecret string `koanf:"jwt_secret"`

	// RateLimitRPS and RateLimitBurst bound requests per client IP. Zero RPS disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gte=0"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		Env:                      "development",
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		DatabaseDriver:           "sqlite",
		DatabaseDSN:              "file:worldcup.db",
		AutoMigrate:              true,
		MaxBracketSize:           32,
		BracketTTLSeconds:        1800,
		RegistryBackend:          "memory",
		RegistryMaxEntries:       100_000,
		QueueSize:                10_000,
		WorkerCount:              runtime.NumCPU(),
		DedupeSize:               50_000,
		MaxRankingLimit:          100,
		LeaderboardResyncSeconds: 60,
		RateLimitRPS:             20,
		RateLimitBurst:           40,
	}
}

// BracketTTL returns BracketTTLSeconds as a duration.
func (c *Config) BracketTTL() time.Duration {
	return time.Duration(c.BracketTTLSeconds) * time.Second
}

// LeaderboardResync returns LeaderboardResyncSeconds as a duration.
func (c *Config) LeaderboardResync() time.Duration {
	return time.Duration(c.LeaderboardResyncSeconds) * time.Second
}

// Production reports whether the process runs in production.
func (c *Config) Production() bool { return c.Env == "production" }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate(_ context.Context) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if bits.OnesCount(uint(c.MaxBracketSize)) != 1 {
		return fmt.Errorf("%w: max_bracket_size %d is not a power of two", ErrInvalidConfig, c.MaxBracketSize)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting is on", ErrInvalidConfig)
	}
	return nil
}
