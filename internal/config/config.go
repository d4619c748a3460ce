// Package config provides the token agent configuration with
// hot-reload support. It uses fsnotify to watch for file changes and
// atomic pointer swaps for zero-downtime updates.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blueberrycongee/tokensub/caches/redis"
	"github.com/blueberrycongee/tokensub/pkg/types"
	"github.com/blueberrycongee/tokensub/tokeninfos"
)

// Config represents the complete agent configuration.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Subscribers []SubscriberConfig `yaml:"subscribers"`
	Cache       CacheConfig        `yaml:"cache"`
	Logging     LoggingConfig      `yaml:"logging"`
	Metrics     MetricsConfig      `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// SubscriberConfig defines one token endpoint subscription.
type SubscriberConfig struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"` // identity, access
	TokenURL string            `yaml:"token_url"`
	Info     tokeninfos.Config `yaml:"info"`
}

// CacheConfig selects the token cache backend.
type CacheConfig struct {
	Type  string       `yaml:"type"` // memory, redis
	Redis redis.Config `yaml:"redis"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8390,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Cache: CacheConfig{
			Type: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadFromFile reads, expands, and validates a configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Subscribers) == 0 {
		return fmt.Errorf("at least one subscriber must be configured")
	}

	seen := make(map[string]bool, len(c.Subscribers))
	for i, s := range c.Subscribers {
		if s.Name == "" {
			return fmt.Errorf("subscriber[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("subscriber[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true

		if s.TokenURL == "" {
			return fmt.Errorf("subscriber[%d] %q: token_url is required", i, s.Name)
		}
		if _, err := types.ParseKind(s.Kind); err != nil {
			return fmt.Errorf("subscriber[%d] %q: %w", i, s.Name, err)
		}
	}

	switch c.Cache.Type {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}

	return nil
}
