package config

import (
	"os"
	"time"
)

// Environment selects timing behavior for rate limiting windows.
// In EnvTest every limiter duration collapses to one second so suites
// exercising expiry stay fast.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvTest       Environment = "test"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   Environment
	JWTSigningKey string
	SessionTTL    time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

var defaultSessionTTL = 30 * 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("SNAPFEED_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := EnvProduction
	if os.Getenv("SNAPFEED_ENV") == string(EnvTest) {
		env = EnvTest
	}

	sessionTTL := defaultSessionTTL
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			sessionTTL = duration
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		Environment:   env,
		JWTSigningKey: jwtSigningKey,
		SessionTTL:    sessionTTL,
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
