package config

import (
	"fmt"
	"time"
)

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// RateLimitConfig limits requests per client IP on the auth endpoints
type RateLimitConfig struct {
	Enabled  bool   `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Backend  string `env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	Requests int    `env:"RATE_LIMIT_REQUESTS" env-default:"10"`
	Window   string `env:"RATE_LIMIT_WINDOW" env-default:"PT1M"`
}

// ParseWindow parses the limiter window
func (r RateLimitConfig) ParseWindow() (time.Duration, error) {
	return parseISO8601OrGoDuration(r.Window)
}

func (r RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	switch r.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", r.Backend)
	}
	if r.Requests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", r.Requests)
	}
	return positiveDuration("RATE_LIMIT_WINDOW", r.Window)
}

// RedisConfig is used by the shared rate limit store
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}
