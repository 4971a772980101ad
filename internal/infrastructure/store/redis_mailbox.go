package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/redis"
)

const mailboxKeyPrefix = "mailbox:reset_email:"

type redisMailbox struct {
	redis *redis.RedisClient
	ttl   time.Duration
}

func NewRedisMailbox(client *redis.RedisClient, ttl time.Duration) repository.Mailbox {
	return &redisMailbox{redis: client, ttl: ttl}
}

func (m *redisMailbox) Put(ctx context.Context, email string) (string, error) {
	slot := uuid.NewString()
	if err := m.redis.Set(ctx, m.redis.Key(mailboxKeyPrefix, slot), email, m.ttl); err != nil {
		return "", fmt.Errorf("failed to write mailbox: %w", err)
	}
	return slot, nil
}

// TakeOnce relies on GETDEL so two concurrent readers cannot both see the value
func (m *redisMailbox) TakeOnce(ctx context.Context, slotID string) (string, error) {
	if slotID == "" {
		return "", entity.ErrMailboxEmpty
	}

	email, err := m.redis.GetDel(ctx, m.redis.Key(mailboxKeyPrefix, slotID))
	if redis.IsNil(err) {
		return "", entity.ErrMailboxEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to read mailbox: %w", err)
	}
	return email, nil
}
