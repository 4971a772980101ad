package ratelimit

import (
	"go.uber.org/fx"

	"xnema-web/internal/config"
	"xnema-web/internal/infrastructure/redis"
)

var Module = fx.Module("ratelimit",
	fx.Provide(NewForgotPasswordLimiter),
)

// NewForgotPasswordLimiter bounds recovery email requests
func NewForgotPasswordLimiter(cfg *config.Config, client *redis.RedisClient) Limiter {
	if cfg.UsesRedis() && client != nil {
		return NewRedisLimiter(client, "rl:forgot:", cfg.RateLimit.ForgotPerWindow, cfg.RateLimit.Window)
	}
	return NewMemoryLimiter(cfg.RateLimit.ForgotPerWindow, cfg.RateLimit.Window)
}
