// Package config loads the server configuration from .env files and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds runtime settings for the server.
//
// JWTSecret signs every session token and is read once at startup.
// BcryptCost is the password hasher's work factor: higher is slower to brute force.
type Config struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	StoreDriver      string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	RedisURL         string        `env:"REDIS_URL"`
	UserListCacheTTL time.Duration `env:"USER_LIST_CACHE_TTL" envDefault:"30s"`
	JWTSecret        string        `env:"JWT_SECRET"`
	TokenTTL         time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"12"`
	HashConcurrency  int           `env:"HASH_CONCURRENCY" envDefault:"0"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env.local and .env (when present) into the environment, then
// parses and validates the configuration. Variables already set in the
// environment win over file values.
func Load() (*Config, error) {
	loadEnvFiles(".env.local", ".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of postgres, memory", c.StoreDriver))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d is outside [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HashConcurrency < 0 {
		errs = append(errs, fmt.Errorf("HASH_CONCURRENCY %d is negative", c.HashConcurrency))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL %s is negative", c.TokenTTL))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is empty"))
	}

	return errors.Join(errs...)
}
