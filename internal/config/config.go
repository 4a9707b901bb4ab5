package config

import (
	"errors"
	"os"
	"time"
)

// ErrMissingDatabaseURL is returned when no database connection string is
// configured by any source.
var ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is required")

// DefaultJWTSecret is used when JWT_SECRET is unset. Deployments must
// override it.
const DefaultJWTSecret = "streamvault-secret-key-change-in-production"

// Config holds application configuration.
type Config struct {
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	ServerPort  string        `yaml:"server_port" env:"SERVER_PORT"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	JWTSecret   string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	JWTExpiry   time.Duration `yaml:"jwt_expiry" env:"JWT_EXPIRY"`
	CORSOrigins string        `yaml:"cors_origins" env:"CORS_ORIGINS"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from
// the current directory. DATABASE_URL is required; everything else has a
// default. REDIS_URL is optional and leaves caching and the refresh queue
// disabled when empty.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerPort:  os.Getenv("SERVER_PORT"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: os.Getenv("CORS_ORIGINS"),
		UserAgent:   os.Getenv("FETCHER_USER_AGENT"),
	}
	c.JWTExpiry = parseDurationEnv("JWT_EXPIRY", 24*time.Hour)
	c.Timeout = parseDurationEnv("FETCHER_TIMEOUT", 30*time.Second)
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DefaultJWTSecret
	}
	if c.CORSOrigins == "" {
		c.CORSOrigins = "*"
	}
	if c.UserAgent == "" {
		c.UserAgent = "StreamVault/1.0"
	}
	if c.JWTExpiry == 0 {
		c.JWTExpiry = 24 * time.Hour
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}
