// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// MinPlayers is the smallest roster a round may ship with. A live pool under
// this threshold forces a training-mode fallback.
const MinPlayers = 2

// Config carries every tunable the service reads from the environment. It is
// built once in main and passed down explicitly; nothing else reads os.Getenv.
type Config struct {
	// Feed provider.
	FeedBaseURL  string
	FeedToken    string
	FeedTimeout  time.Duration
	Keyword      string // required substring for a qualifying comment; empty accepts all
	MaxPlayers   int
	TrainingSize int // roster size for training-mode rounds

	// Postgres.
	DatabaseURL string

	// Redis.
	RedisAddr string
	RedisDB   int
	CacheTTL  time.Duration

	// Admin auth.
	AdminPasswordHash string // argon2id encoded hash
	TokenExpire       time.Duration

	// HTTP.
	ListenAddr string
}

// Load builds a Config from environment variables, applying defaults where a
// variable is unset. It fails only on values that parse but make no sense.
func Load() (*Config, error) {
	cfg := &Config{
		FeedBaseURL:       os.Getenv("FEED_BASE_URL"),
		FeedToken:         os.Getenv("FEED_TOKEN"),
		FeedTimeout:       getEnvDuration("FEED_TIMEOUT", 10*time.Second),
		Keyword:           os.Getenv("ENTRY_KEYWORD"),
		MaxPlayers:        getEnvInt("MAX_PLAYERS", 24),
		TrainingSize:      getEnvInt("TRAINING_ROSTER_SIZE", 8),
		DatabaseURL:       buildDatabaseURL(),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CacheTTL:          getEnvDuration("CACHE_TTL", 30*time.Second),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		TokenExpire:       getEnvDuration("TOKEN_EXPIRE_TIME", 72*time.Hour),
		ListenAddr:        ":" + getEnv("PORT", "8080"),
	}

	if cfg.MaxPlayers < MinPlayers {
		return nil, fmt.Errorf("MAX_PLAYERS must be at least %d, got %d", MinPlayers, cfg.MaxPlayers)
	}
	if cfg.TrainingSize < MinPlayers {
		return nil, fmt.Errorf("TRAINING_ROSTER_SIZE must be at least %d, got %d", MinPlayers, cfg.TrainingSize)
	}
	if cfg.TrainingSize > cfg.MaxPlayers {
		cfg.TrainingSize = cfg.MaxPlayers
	}
	return cfg, nil
}

// buildDatabaseURL prefers DATABASE_URL, falling back to the discrete
// POSTGRES_* variables.
func buildDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		getEnv("POSTGRES_USER", "postgres"),
		os.Getenv("POSTGRES_PASSWORD"),
		getEnv("PG_HOST", "localhost"),
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "rumble"),
	)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
