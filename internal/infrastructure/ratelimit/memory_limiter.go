package ratelimit

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MemoryLimiter is a token bucket per key that refills max tokens per window.
// Idle buckets are evicted after one window.
type MemoryLimiter struct {
	buckets *gocache.Cache
	max     int
	window  time.Duration
	every   rate.Limit
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		buckets: gocache.New(window, window),
		max:     max,
		window:  window,
		every:   rate.Every(window / time.Duration(max)),
	}
}

func (l *MemoryLimiter) bucket(key string) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		l.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}

	lim := rate.NewLimiter(l.every, l.max)
	if err := l.buckets.Add(key, lim, gocache.DefaultExpiration); err != nil {
		// lost the race, use the winner
		if v, ok := l.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	now := time.Now()

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{Allowed: false, RetryAfter: delay}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: int64(lim.TokensAt(now)),
	}, nil
}
