package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"xnema-web/internal/config"
)

var Module = fx.Module("redis",
	fx.Provide(NewRedisClient),
)

// ErrNil is returned by Get and GetDel when the key does not exist
var ErrNil = redis.Nil

type RedisClient struct {
	Client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisClient connects to Redis when the store driver needs it.
// With the memory driver it returns a nil client and consumers must not touch it.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*RedisClient, error) {
	if !cfg.UsesRedis() {
		logger.Info("Redis disabled, using in-memory stores",
			zap.String("store_driver", cfg.Store.Driver),
		)
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connected successfully",
		zap.String("addr", addr),
		zap.Int("db", cfg.Redis.DB),
	)

	rc := NewFromClient(client, cfg.Redis.KeyPrefix, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rc.Close()
		},
	})

	return rc, nil
}

// NewFromClient wraps an existing go-redis client
func NewFromClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisClient {
	return &RedisClient{
		Client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Key namespaces a key with the configured prefix
func (r *RedisClient) Key(parts ...string) string {
	key := r.prefix
	for _, p := range parts {
		key += p
	}
	return key
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.Client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.Client.Get(ctx, key).Result()
}

// GetDel reads and deletes a key atomically
func (r *RedisClient) GetDel(ctx context.Context, key string) (string, error) {
	return r.Client.GetDel(ctx, key).Result()
}

// SetNX sets a key only if it does not exist yet
func (r *RedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, value, expiration).Result()
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	result, err := r.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// IsNil reports whether err means "key not found"
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}
