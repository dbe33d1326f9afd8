package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/tag-inspector/analyzer"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)

	store, err := NewRedis(context.Background(), server.Addr(), "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, server
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedis(t, time.Minute)

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	analysis, err := analyzer.Analyze("https://example.com/", `<title>Cached page title</title>`)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, Key(analysis.URL), analysis))

	assert.True(t, server.Exists(redisPrefix+Key(analysis.URL)))
	assert.Equal(t, time.Minute, server.TTL(redisPrefix+Key(analysis.URL)))

	got, found, err := store.Get(ctx, Key(analysis.URL))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, analysis, got)

	// Keys outside the prefix are not counted
	require.NoError(t, server.Set("other:key", "x"))
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisStoreExpires(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedis(t, time.Minute)

	require.NoError(t, store.Set(ctx, "k", &analyzer.PageAnalysis{URL: "https://example.com"}))
	server.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedis(t, time.Minute)

	require.NoError(t, server.Set(redisPrefix+"k", "not json"))
	_, found, err := store.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewRedis(ctx, addr, "", 0, time.Minute)
	assert.Error(t, err)

	_, err = New(ctx, Options{Backend: BackendRedis, TTL: time.Minute, RedisAddr: addr})
	assert.Error(t, err)
}

func TestNewSelectsRedisBackend(t *testing.T) {
	server := miniredis.RunT(t)

	store, err := New(context.Background(), Options{Backend: BackendRedis, TTL: time.Minute, RedisAddr: server.Addr()})
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &Redis{}, store)
}
