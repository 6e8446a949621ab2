// Package cache stores serialized query results. Errors degrade to misses.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tomlord1122/space-todo/internal/logger"
)

// Cache is a byte-oriented key/value cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Invalidate(ctx context.Context, keys ...string)
}

// TasksKey is the key holding the task list of a space.
func TasksKey(spaceID string) string {
	return fmt.Sprintf("tasks:space:%s", spaceID)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte)        {}
func (Nop) Invalidate(context.Context, ...string)      {}

// Redis is a Cache backed by go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis parses url, connects and pings.
func NewRedis(ctx context.Context, url string, poolSize int, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info(ctx, "Redis client initialized", "pool_size", opts.PoolSize)
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get failed", "key", key, "error", err)
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set failed", "key", key, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn(ctx, "Redis invalidate failed", "keys", keys, "error", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
