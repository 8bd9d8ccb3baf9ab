package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a keyed caller may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	// Window is the period after which a blocked caller may retry.
	Window() time.Duration
}

// Options selects and sizes a limiter.
type Options struct {
	Limit  int
	Window time.Duration
	// RedisAddr enables the shared Redis limiter; empty means in-process.
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
}

// New returns a Redis fixed-window limiter when RedisAddr is set, otherwise
// an in-process token bucket limiter with the same average rate.
func New(opts Options) (Limiter, error) {
	if opts.RedisAddr != "" {
		return NewRedisFixedWindowLimiter(opts.RedisAddr, opts.RedisPassword, opts.RedisPrefix, opts.Limit, opts.Window)
	}
	return NewTokenBucketLimiter(opts.Limit, opts.Window)
}
