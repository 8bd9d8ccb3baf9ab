package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterRedis(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	defer limiter.Close()
	ctx := context.Background()

	if !limiter.Allow(ctx, "ip-1") || !limiter.Allow(ctx, "ip-1") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow(ctx, "ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow(ctx, "ip-2") {
		t.Fatalf("other keys keep their own quota")
	}
}

func TestFixedWindowLimiterRedisFailClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	redis.Close()
	if limiter.Allow(context.Background(), "ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterRequiresRedisAddr(t *testing.T) {
	limiter, err := NewRedisFixedWindowLimiter("", "", "test:ratelimit", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}

func TestNewSelectsImplementation(t *testing.T) {
	redis := miniredis.RunT(t)
	l, err := New(Options{Limit: 1, Window: time.Second, RedisAddr: redis.Addr()})
	if err != nil {
		t.Fatalf("new redis-backed limiter: %v", err)
	}
	if _, ok := l.(*FixedWindowLimiter); !ok {
		t.Fatalf("expected redis limiter, got %T", l)
	}

	l, err = New(Options{Limit: 1, Window: time.Second})
	if err != nil {
		t.Fatalf("new local limiter: %v", err)
	}
	if _, ok := l.(*TokenBucketLimiter); !ok {
		t.Fatalf("expected token bucket limiter, got %T", l)
	}

	if _, err := New(Options{Limit: 0, Window: time.Second}); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}
