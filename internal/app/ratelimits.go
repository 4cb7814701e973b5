package app

import (
	"context"
	"sync"
)

// AcquireRateLimit admits one analyze request for clientIP. The returned
// release func is safe to call more than once.
func (c *Container) AcquireRateLimit(ctx context.Context, clientIP string) (func(), error) {
	if c == nil || !c.RateLimiter.Enabled() {
		return func() {}, nil
	}
	key := "client:" + clientIP
	if err := c.RateLimiter.Allow(ctx, key); err != nil {
		return nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.RateLimiter.Release(context.WithoutCancel(ctx), key)
		})
	}
	return release, nil
}
