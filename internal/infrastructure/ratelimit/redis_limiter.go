package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xnema-web/internal/infrastructure/redis"
)

// RedisLimiter is a fixed window counter (INCR + EXPIREAT in one transaction)
type RedisLimiter struct {
	redis  *redis.RedisClient
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.RedisClient, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	winEnd := winStart.Add(l.window)
	redisKey := l.redis.Key(l.prefix, fmt.Sprintf("%s:%d", strings.ReplaceAll(key, " ", "_"), winStart.Unix()))

	// The key dies with its window, so the counter never outlives it
	pipe := l.redis.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, winEnd)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to count attempt: %w", err)
	}

	hits := incr.Val()
	res := Result{
		Allowed:   hits <= l.max,
		Remaining: max(l.max-hits, 0),
	}
	if !res.Allowed {
		res.RetryAfter = max(winEnd.Sub(now), time.Second)
	}
	return res, nil
}
