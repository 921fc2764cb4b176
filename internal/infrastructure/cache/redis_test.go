package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Units int `json:"units"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{URL: "redis://" + srv.Addr()})
	require.NoError(t, err)
	c := NewRedisCache(client, "")
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestKeys(t *testing.T) {
	c := NewRedisCache(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "")

	assert.Equal(t, "stockbi:reports:gen", c.generationKey())
	assert.Equal(t, "stockbi:reports:3:rows:sales|month", c.entryKey(3, "rows:sales|month"))
}

func TestKeys_CustomPrefix(t *testing.T) {
	c := NewRedisCache(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "tenant-a")

	assert.Equal(t, "tenant-a:0:k", c.entryKey(0, "k"))
}

func TestRedisCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestCache(t)

	var got payload
	gen, hit, err := c.Get(ctx, "rows:sales", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, gen)

	require.NoError(t, c.Set(ctx, gen, "rows:sales", payload{Units: 4}, time.Minute))
	assert.True(t, srv.Exists("stockbi:reports:0:rows:sales"))
	assert.Equal(t, time.Minute, srv.TTL("stockbi:reports:0:rows:sales"))

	gen, hit, err = c.Get(ctx, "rows:sales", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Zero(t, gen)
	assert.Equal(t, 4, got.Units)
}

func TestRedisCache_InvalidateHidesOlderEntries(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, 0, "k", payload{Units: 1}, time.Minute))
	require.NoError(t, c.Invalidate(ctx))

	var got payload
	gen, hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(1), gen)
}

func TestRedisCache_SetIntoStaleGenerationIsUnreachable(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	var got payload
	gen, _, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)

	// A run completes between the read and the write.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, "k", payload{Units: 1}, time.Minute))

	_, hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestCache(t)
	require.NoError(t, srv.Set("stockbi:reports:0:k", "{not json"))

	var got payload
	_, hit, err := c.Get(ctx, "k", &got)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestRedisCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestCache(t)
	srv.Close()

	var got payload
	_, _, err := c.Get(ctx, "k", &got)
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{URL: "http://nope"})
	assert.Error(t, err)
}
