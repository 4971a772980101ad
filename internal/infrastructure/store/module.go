package store

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"xnema-web/internal/config"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/redis"
)

var Module = fx.Module("store",
	fx.Provide(NewFlowRepository),
	fx.Provide(NewMailbox),
)

// NewFlowRepository picks the driver configured in store.driver
func NewFlowRepository(cfg *config.Config, client *redis.RedisClient, logger *zap.Logger) repository.FlowRepository {
	if cfg.UsesRedis() && client != nil {
		return NewRedisFlowRepository(client)
	}
	logger.Warn("Recovery flows are kept in memory and will not survive a restart")
	return NewMemoryFlowRepository()
}

func NewMailbox(cfg *config.Config, client *redis.RedisClient) repository.Mailbox {
	if cfg.UsesRedis() && client != nil {
		return NewRedisMailbox(client, cfg.Mailbox.TTL)
	}
	return NewMemoryMailbox(cfg.Mailbox.TTL)
}
