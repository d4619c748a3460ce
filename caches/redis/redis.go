// Package redis provides a Redis-backed token cache so that multiple
// agent replicas can share the most recently fetched tokens.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/blueberrycongee/tokensub/pkg/cache"
)

// Cache implements cache.Cache using Redis as the backend.
type Cache struct {
	client     goredis.UniversalClient
	namespace  string
	defaultTTL time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errs    atomic.Int64
}

// Config holds configuration for the Redis cache.
type Config struct {
	Addr     string `yaml:"addr"`     // Redis address (e.g. "localhost:6379")
	Password string `yaml:"password"` // Redis password
	DB       int    `yaml:"db"`       // Redis database number

	Namespace    string        `yaml:"namespace"`     // Key namespace prefix
	DefaultTTL   time.Duration `yaml:"default_ttl"`   // Default TTL when Set gets ttl <= 0
	DialTimeout  time.Duration `yaml:"dial_timeout"`  // Connection timeout
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Read timeout
	WriteTimeout time.Duration `yaml:"write_timeout"` // Write timeout
	PoolSize     int           `yaml:"pool_size"`     // Connection pool size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Namespace:    "tokensub",
		DefaultTTL:   time.Hour,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// New creates a Redis token cache and verifies connectivity.
func New(cfg Config) (*Cache, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	c := &Cache{
		client:     client,
		namespace:  cfg.Namespace,
		defaultTTL: cfg.DefaultTTL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

// NewWithClient wraps an existing Redis client. Used by tests and by
// callers that manage their own connection.
func NewWithClient(client goredis.UniversalClient, namespace string, defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{client: client, namespace: namespace, defaultTTL: defaultTTL}
}

func (c *Cache) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

// Get retrieves the entry for key.
func (c *Cache) Get(ctx context.Context, key string) (cache.Token, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		c.misses.Add(1)
		return cache.Token{}, false, nil
	}
	if err != nil {
		c.errs.Add(1)
		return cache.Token{}, false, fmt.Errorf("redis get: %w", err)
	}

	var tok cache.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		c.errs.Add(1)
		return cache.Token{}, false, fmt.Errorf("decode cached token: %w", err)
	}
	c.hits.Add(1)
	return tok, true, nil
}

// Set stores the entry for key.
func (c *Cache) Set(ctx context.Context, key string, tok cache.Token, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(tok)
	if err != nil {
		c.errs.Add(1)
		return fmt.Errorf("encode token: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("redis set: %w", err)
	}
	c.sets.Add(1)
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("redis del: %w", err)
	}
	c.deletes.Add(1)
	return nil
}

// Ping checks backend health.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Stats returns operation counters.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errs.Load(),
	}
}
