package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/feedback_assistant/internal/config"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// semaphoreTTL bounds how long a leaked parallel slot can survive a crash.
const semaphoreTTL = 5 * time.Minute

type LimitConfig struct {
	RequestsPerMinute int
	ParallelRequests  int
}

// FromConfig maps the rate_limits config section.
func FromConfig(cfg config.RateLimitConfig) LimitConfig {
	return LimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		ParallelRequests:  cfg.ParallelRequests,
	}
}

// Active reports whether any limit is set.
func (c LimitConfig) Active() bool {
	return c.RequestsPerMinute > 0 || c.ParallelRequests > 0
}

// RateLimiter keeps fixed-window and semaphore counters in Redis so limits
// hold across replicas.
type RateLimiter struct {
	client redis.Cmdable
	limits LimitConfig
	now    func() time.Time
}

func NewRateLimiter(client redis.Cmdable, limits LimitConfig) *RateLimiter {
	return &RateLimiter{client: client, limits: limits, now: time.Now}
}

// Enabled reports whether Allow can ever reject a request.
func (l *RateLimiter) Enabled() bool {
	return l != nil && l.client != nil && l.limits.Active()
}

// Allow admits one request for key. Every successful Allow must be paired
// with Release so the parallel slot is returned.
func (l *RateLimiter) Allow(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}

	if l.limits.RequestsPerMinute > 0 {
		if err := l.countCheck(ctx, fmt.Sprintf("rpm:%s", key), time.Minute, l.limits.RequestsPerMinute); err != nil {
			return err
		}
	}
	if l.limits.ParallelRequests > 0 {
		if err := l.semaphoreAcquire(ctx, fmt.Sprintf("sem:%s", key), l.limits.ParallelRequests); err != nil {
			return err
		}
	}
	return nil
}

func (l *RateLimiter) Release(ctx context.Context, key string) {
	if !l.Enabled() || l.limits.ParallelRequests <= 0 {
		return
	}
	l.client.Decr(ctx, fmt.Sprintf("sem:%s", key))
}

func (l *RateLimiter) countCheck(ctx context.Context, key string, window time.Duration, limit int) error {
	bucket := l.now().UTC().Unix() / int64(window.Seconds())
	redisKey := fmt.Sprintf("%s:%d", key, bucket)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("rate limit counter: %w", err)
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, window)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}

func (l *RateLimiter) semaphoreAcquire(ctx context.Context, key string, max int) error {
	cnt, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rate limit semaphore: %w", err)
	}
	if cnt == 1 {
		l.client.Expire(ctx, key, semaphoreTTL)
	}
	if int(cnt) > max {
		l.client.Decr(ctx, key)
		return ErrLimitExceeded
	}
	return nil
}
