package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter counts attempts per key
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
