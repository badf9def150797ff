package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Sandbox   SandboxConfig
	Transport TransportConfig
}

// ServerConfig holds HTTP bridge configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-client rate limiting for the bridge.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SandboxConfig holds script runner limits.
type SandboxConfig struct {
	TimeoutMS    int `envconfig:"SCRIPT_TIMEOUT_MS" default:"5000"`
	PoolSize     int `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	MaxCallStack int `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
}

// Timeout returns the default per-run script timeout.
func (c SandboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TransportConfig holds settings for requests sent from scripts.
type TransportConfig struct {
	Timeout           time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	Retries           int           `envconfig:"HTTP_RETRIES" default:"0"`
	RequestsPerSecond float64       `envconfig:"HTTP_RPS" default:"0"`
	UserAgent         string        `envconfig:"HTTP_USER_AGENT" default:"insomnia-scripting/1.0"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sandbox: SandboxConfig{
			TimeoutMS:    5000,
			PoolSize:     4,
			MaxCallStack: 1024,
		},
		Transport: TransportConfig{
			Timeout:   30 * time.Second,
			UserAgent: "insomnia-scripting/1.0",
		},
	}
}
