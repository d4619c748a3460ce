package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/tokensub/pkg/cache"
)

func TestSetGetDelete(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Close()
	ctx := context.Background()

	_, found, err := c.Get(ctx, "token:a")
	require.NoError(t, err)
	assert.False(t, found)

	tok := cache.Token{
		Value:     "abc",
		Kind:      "access",
		FetchedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, c.Set(ctx, "token:a", tok, time.Hour))

	got, found, err := c.Get(ctx, "token:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", got.Value)
	assert.Equal(t, "access", got.Kind)

	require.NoError(t, c.Delete(ctx, "token:a"))
	_, found, err = c.Get(ctx, "token:a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEntryExpires(t *testing.T) {
	c := New(Config{DefaultTTL: time.Hour, CleanupInterval: time.Hour})
	defer c.Close()
	ctx := context.Background()

	tok := cache.Token{Value: "short"}
	require.NoError(t, c.Set(ctx, "token:a", tok, 20*time.Millisecond))

	time.Sleep(50 * time.Millisecond)
	_, found, err := c.Get(ctx, "token:a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStats(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Close()
	ctx := context.Background()

	_, _, _ = c.Get(ctx, "missing")
	_ = c.Set(ctx, "k", cache.Token{Value: "v"}, time.Hour)
	_, _, _ = c.Get(ctx, "k")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestPing(t *testing.T) {
	c := New(DefaultConfig())
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}
