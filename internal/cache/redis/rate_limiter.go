package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ethanvb/clobtrader/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// SubmitLimiter throttles order submissions with a sliding window backed by
// Redis sorted sets and an atomic Lua script. It satisfies the trading
// client's limiter contract: a denied request surfaces as a
// RATE_LIMIT_EXCEEDED coded error.
type SubmitLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
	limit         int
	window        time.Duration
}

// NewSubmitLimiter creates a limiter permitting limit requests per window
// per key.
func NewSubmitLimiter(c *Client, limit int, window time.Duration) *SubmitLimiter {
	return &SubmitLimiter{
		rdb:           c.rdb,
		slidingWindow: redis.NewScript(slidingWindowLua),
		limit:         limit,
		window:        window,
	}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow counts one request for the key and returns nil when it fits inside
// the window, or a RATE_LIMIT_EXCEEDED error when the limit is reached.
func (sl *SubmitLimiter) Allow(ctx context.Context, key string) error {
	now := time.Now().UnixMicro()

	result, err := sl.slidingWindow.Run(
		ctx,
		sl.rdb,
		[]string{rateLimitKey(key)},
		now,
		sl.window.Microseconds(),
		sl.limit,
	).Int64Slice()
	if err != nil {
		return fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(result) < 2 {
		return fmt.Errorf("redis: rate limit %s: unexpected result length %d", key, len(result))
	}

	if result[0] != 1 {
		return domain.Errorf(domain.CodeRateLimitExceeded,
			"submit limit of %d per %s reached for %s", sl.limit, sl.window, key)
	}
	return nil
}
