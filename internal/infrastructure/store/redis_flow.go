package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/redis"
)

const (
	flowKeyPrefix = "recovery:flow:"
	lockKeyPrefix = "recovery:lock:"
)

type redisFlowRepository struct {
	redis *redis.RedisClient
}

func NewRedisFlowRepository(client *redis.RedisClient) repository.FlowRepository {
	return &redisFlowRepository{redis: client}
}

func (r *redisFlowRepository) Save(ctx context.Context, flow *entity.RecoveryFlow, ttl time.Duration) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	if err := r.redis.Set(ctx, r.redis.Key(flowKeyPrefix, flow.ID), string(data), ttl); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

func (r *redisFlowRepository) Find(ctx context.Context, id string) (*entity.RecoveryFlow, error) {
	data, err := r.redis.Get(ctx, r.redis.Key(flowKeyPrefix, id))
	if redis.IsNil(err) {
		return nil, entity.ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}

	var flow entity.RecoveryFlow
	if err := json.Unmarshal([]byte(data), &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &flow, nil
}

func (r *redisFlowRepository) Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.redis.SetNX(ctx, r.redis.Key(lockKeyPrefix, id), "1", ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire flow lock: %w", err)
	}
	return ok, nil
}

func (r *redisFlowRepository) Release(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, r.redis.Key(lockKeyPrefix, id)); err != nil {
		return fmt.Errorf("failed to release flow lock: %w", err)
	}
	return nil
}
