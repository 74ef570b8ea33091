package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmcore/authcore/internal/core/ports"
)

// tokenBucket refills one token per interval up to capacity and takes one
// token per call. Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals)
	last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimiterConfig sizes the token bucket.
type RateLimiterConfig struct {
	Prefix         string
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
}

// RateLimiter is a Redis token bucket shared by every instance of the service.
// Key format: <prefix>:<key>
type RateLimiter struct {
	client *redis.Client
	cfg    RateLimiterConfig
	now    func() time.Time
}

var _ ports.RateLimiter = (*RateLimiter)(nil)

func NewRateLimiter(client *redis.Client, cfg RateLimiterConfig) *RateLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	if cfg.TTL < cfg.RefillInterval*time.Duration(cfg.Capacity) {
		cfg.TTL = cfg.RefillInterval * time.Duration(cfg.Capacity)
	}
	return &RateLimiter{client: client, cfg: cfg, now: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (ports.RateDecision, error) {
	res, err := tokenBucket.Run(ctx, l.client, []string{l.key(key)},
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit: %w", err)
	}
	return parseBucketResult(res, l.cfg.Capacity)
}

func (l *RateLimiter) key(key string) string {
	return l.cfg.Prefix + ":" + key
}

func parseBucketResult(res []int64, capacity int) (ports.RateDecision, error) {
	if len(res) != 3 {
		return ports.RateDecision{}, fmt.Errorf("rate limit: unexpected script result of length %d", len(res))
	}
	return ports.RateDecision{
		Allowed:    res[0] == 1,
		Limit:      capacity,
		Remaining:  res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
