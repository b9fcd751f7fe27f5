package config

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig tunes the optional Redis-backed session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server captures process-level configuration.
type Server struct {
	Addr        string
	PostgresURL string
	Redis       RedisConfig

	// SessionTTL bounds how long the "current application" binding lives in
	// the Redis store. Ignored by the in-memory store.
	SessionTTL time.Duration

	// OverdueSweepSpec is the cron expression for the repayment overdue sweep.
	OverdueSweepSpec string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("LENDFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	sweepSpec := os.Getenv("LENDFLOW_OVERDUE_SWEEP")
	if sweepSpec == "" {
		sweepSpec = "@hourly"
	}

	return Server{
		Addr:        addr,
		PostgresURL: os.Getenv("LENDFLOW_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("LENDFLOW_REDIS_URL"),
			PoolSize:     envInt("LENDFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LENDFLOW_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("LENDFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("LENDFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("LENDFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SessionTTL:       envDuration("LENDFLOW_SESSION_TTL", 24*time.Hour),
		OverdueSweepSpec: sweepSpec,
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
