// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings.
type Config struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DatabaseDSN string        `env:"DATABASE_DSN,required"`
	RedisURL    string        `env:"REDIS_URL"`                 // empty disables caching
	HandleTTL   time.Duration `env:"HANDLE_TTL" envDefault:"24h"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
