package redis

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseBucketResult(t *testing.T) {
	d, err := parseBucketResult([]int64{1, 4, 0}, 5)
	if err != nil {
		t.Fatalf("parseBucketResult returned error: %v", err)
	}
	if !d.Allowed || d.Remaining != 4 || d.Limit != 5 || d.RetryAfter != 0 {
		t.Fatalf("unexpected decision: %+v", d)
	}

	d, err = parseBucketResult([]int64{0, 0, 2500}, 5)
	if err != nil {
		t.Fatalf("parseBucketResult returned error: %v", err)
	}
	if d.Allowed || d.RetryAfter != 2500*time.Millisecond {
		t.Fatalf("unexpected decision: %+v", d)
	}

	if _, err := parseBucketResult([]int64{1}, 5); err == nil {
		t.Fatalf("expected error for short result")
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(redis.NewClient(&redis.Options{Addr: "localhost:0"}), RateLimiterConfig{
		Capacity:       10,
		RefillInterval: 6 * time.Second,
		TTL:            time.Second,
	})
	if l.cfg.Prefix != "rl" {
		t.Fatalf("expected default prefix, got %q", l.cfg.Prefix)
	}
	if l.cfg.TTL != time.Minute {
		t.Fatalf("expected TTL raised to a full refill window, got %v", l.cfg.TTL)
	}
	if got := l.key("login:1.2.3.4"); got != "rl:login:1.2.3.4" {
		t.Fatalf("unexpected key %q", got)
	}
}
