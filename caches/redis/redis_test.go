package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/tokensub/pkg/cache"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, "tokensub", time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetGetDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "token:a")
	require.NoError(t, err)
	assert.False(t, found)

	now := time.Now().UTC().Truncate(time.Second)
	tok := cache.Token{
		Value:     "abc",
		Kind:      "access",
		FetchedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, c.Set(ctx, "token:a", tok, time.Hour))

	got, found, err := c.Get(ctx, "token:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "abc", got.Value)
	assert.True(t, got.ExpiresAt.Equal(tok.ExpiresAt))

	require.NoError(t, c.Delete(ctx, "token:a"))
	_, found, err = c.Get(ctx, "token:a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNamespacing(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token:a", cache.Token{Value: "v"}, time.Hour))
	assert.True(t, mr.Exists("tokensub:token:a"))
}

func TestEntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token:a", cache.Token{Value: "v"}, time.Minute))

	mr.FastForward(2 * time.Minute)
	_, found, err := c.Get(ctx, "token:a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCorruptEntryIsAnError(t *testing.T) {
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set("tokensub:token:a", "not json"))
	_, _, err := c.Get(context.Background(), "token:a")
	assert.Error(t, err)
	assert.Equal(t, int64(1), c.Stats().Errors)
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, _, _ = c.Get(ctx, "missing")
	_ = c.Set(ctx, "k", cache.Token{Value: "v"}, time.Hour)
	_, _, _ = c.Get(ctx, "k")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}
