package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL applies when the configured TTL is zero.
const DefaultIdempotencyTTL = 30 * time.Minute

const analyzeScope = "analyze"

// IdempotencyCache stores serialized analyze responses keyed by the client's
// Idempotency-Key header.
type IdempotencyCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewIdempotencyCache(client redis.Cmdable, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client backs the cache.
func (c *IdempotencyCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached body for key. A miss, an empty key or a Redis error
// all report false; the error is returned so callers can log it.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.Enabled() || key == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency get: %w", err)
	}
	return data, true, nil
}

// Set stores value under key for the cache TTL. The first writer wins so a
// replay always returns the original response.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte) error {
	if !c.Enabled() || key == "" || len(value) == 0 {
		return nil
	}
	if err := c.client.SetNX(ctx, c.prefixed(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency set: %w", err)
	}
	return nil
}

func (c *IdempotencyCache) prefixed(key string) string {
	return "idem:" + analyzeScope + ":" + key
}
