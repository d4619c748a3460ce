// Package cache defines the token cache interface. A cache mirrors the
// most recently fetched token per subscriber so that other processes
// (or the agent's HTTP surface) can read it without talking to the
// token endpoint themselves. It is a live mirror, not a persistence
// layer: tokens are always refetched on startup.
package cache

import (
	"context"
	"time"
)

// Type identifies a cache backend.
type Type string

const (
	TypeMemory Type = "memory" // In-process cache
	TypeRedis  Type = "redis"  // Shared Redis cache
)

// Cache stores the current token per subscriber key. Entries carry
// their own TTL so a stale token ages out if the subscriber stops
// refreshing.
type Cache interface {
	// Get retrieves the entry for key. Returns found=false if the key
	// is absent or expired.
	Get(ctx context.Context, key string) (Token, bool, error)

	// Set stores the entry for key, expiring after ttl.
	Set(ctx context.Context, key string, tok Token, ttl time.Duration) error

	// Delete removes the entry for key.
	Delete(ctx context.Context, key string) error

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Stats returns operation counters.
	Stats() Stats
}

// Token is one cached credential with its fetch metadata.
type Token struct {
	Value     string    `json:"value"`
	Kind      string    `json:"kind"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats holds cache operation counters for monitoring.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Errors  int64 `json:"errors"`
}
