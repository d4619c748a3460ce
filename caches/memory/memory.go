// Package memory provides an in-process token cache.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/blueberrycongee/tokensub/pkg/cache"
)

// Cache implements cache.Cache with an in-process store.
type Cache struct {
	store *gocache.Cache

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// Config holds configuration for the in-memory cache.
type Config struct {
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// CleanupInterval controls how often expired entries are purged.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// New creates an in-memory token cache.
func New(cfg Config) *Cache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	return &Cache{store: gocache.New(cfg.DefaultTTL, cfg.CleanupInterval)}
}

// Get retrieves the entry for key.
func (c *Cache) Get(_ context.Context, key string) (cache.Token, bool, error) {
	val, found := c.store.Get(key)
	if !found {
		c.misses.Add(1)
		return cache.Token{}, false, nil
	}
	tok, ok := val.(cache.Token)
	if !ok {
		c.misses.Add(1)
		return cache.Token{}, false, nil
	}
	c.hits.Add(1)
	return tok, true, nil
}

// Set stores the entry for key.
func (c *Cache) Set(_ context.Context, key string, tok cache.Token, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, tok, ttl)
	c.sets.Add(1)
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	c.deletes.Add(1)
	return nil
}

// Ping always succeeds for the in-process cache.
func (c *Cache) Ping(_ context.Context) error { return nil }

// Close flushes the store.
func (c *Cache) Close() error {
	c.store.Flush()
	return nil
}

// Stats returns operation counters.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
	}
}
