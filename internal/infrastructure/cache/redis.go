// Package cache provides the Redis-backed report cache.
//
// Entries are namespaced by a generation counter: invalidation increments
// the counter, so every older entry becomes unreachable at once and simply
// expires with its TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"stockbi/internal/domain/reports"
)

var _ reports.Cache = (*RedisCache)(nil)

// Config holds connection settings.
type Config struct {
	URL      string
	Password string
	DB       int
	Prefix   string
}

// NewClient creates a Redis client and performs a health check.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisCache implements reports.Cache.
type RedisCache struct {
	client *goredis.Client
	prefix string
}

// NewRedisCache wraps client; prefix defaults to "stockbi:reports".
func NewRedisCache(client *goredis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "stockbi:reports"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get decodes the entry for key in the current generation into dest and
// returns that generation, also on a miss.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}

	val, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return gen, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return gen, true, nil
}

// Set stores value under key in generation gen. Writes into a generation
// that has been invalidated in the meantime are unreachable and expire.
func (c *RedisCache) Set(ctx context.Context, gen int64, key string, value any, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.entryKey(gen, key), payload, ttl).Err()
}

// Invalidate bumps the generation.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *RedisCache) entryKey(gen int64, key string) string {
	return c.prefix + ":" + strconv.FormatInt(gen, 10) + ":" + key
}
