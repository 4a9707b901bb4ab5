package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL string `yaml:"database_url"`
	ServerPort  string `yaml:"server_port"`
	RedisURL    string `yaml:"redis_url"`
	JWTSecret   string `yaml:"jwt_secret"`
	JWTExpiry   string `yaml:"jwt_expiry"`
	CORSOrigins string `yaml:"cors_origins"`
	UserAgent   string `yaml:"user_agent"`
	Timeout     string `yaml:"timeout"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL: f.DatabaseURL,
		ServerPort:  f.ServerPort,
		RedisURL:    f.RedisURL,
		JWTSecret:   f.JWTSecret,
		CORSOrigins: f.CORSOrigins,
		UserAgent:   f.UserAgent,
	}
	if f.JWTExpiry != "" {
		if d, err := time.ParseDuration(f.JWTExpiry); err == nil {
			c.JWTExpiry = d
		}
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}
