// Package caches provides the token cache implementations: in-memory
// and Redis backends behind the cache.Cache interface.
package caches

import (
	"fmt"

	"github.com/blueberrycongee/tokensub/caches/memory"
	"github.com/blueberrycongee/tokensub/caches/redis"
	"github.com/blueberrycongee/tokensub/pkg/cache"
)

// Type re-exports cache types for convenience.
type Type = cache.Type

// Cache type constants.
const (
	TypeMemory = cache.TypeMemory
	TypeRedis  = cache.TypeRedis
)

// NewMemory creates an in-memory cache with the given configuration.
func NewMemory(cfg memory.Config) *memory.Cache {
	return memory.New(cfg)
}

// NewMemoryDefault creates an in-memory cache with default configuration.
func NewMemoryDefault() *memory.Cache {
	return memory.New(memory.DefaultConfig())
}

// NewRedis creates a Redis cache with the given configuration.
// Returns an error if the Redis connection fails.
func NewRedis(cfg redis.Config) (*redis.Cache, error) {
	return redis.New(cfg)
}

// New creates a cache by type name. Used by config-driven wiring.
func New(t Type, redisCfg redis.Config) (cache.Cache, error) {
	switch t {
	case TypeMemory, "":
		return NewMemoryDefault(), nil
	case TypeRedis:
		return NewRedis(redisCfg)
	default:
		return nil, fmt.Errorf("unknown cache type %q", t)
	}
}
