package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a per-tenant sliding window limiter on remote fetches,
// keeping a tenant under the remote API's request budget. Each request is
// a sorted-set member scored by its timestamp; a Lua script trims the
// window, counts and admits atomically.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window + 1000)
    return 1
else
    return 0
end
`)

// NewRateLimiter creates a limiter over the given window (one hour when
// non-positive).
func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      window,
	}
}

func rlKey(tenant string) string {
	return fmt.Sprintf("rl:%s", tenant)
}

// Allow reports whether one more fetch for tenant fits in the window.
// limit <= 0 disables limiting; Redis errors fail open.
func (rl *RateLimiter) Allow(ctx context.Context, tenant string, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := time.Now()
	member := fmt.Sprintf("%d:%d", now.UnixMilli(), now.UnixNano()%1_000_000)

	result, err := rl.script.Run(ctx, rl.redisClient, []string{rlKey(tenant)},
		now.UnixMilli(), rl.window.Milliseconds(), limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "tenant", tenant)
		return true
	}

	if result == 0 {
		rl.logger.Debug("tenant rate limited", "tenant", tenant, "limit", limit, "window", rl.window)
		return false
	}

	return true
}
