package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
)

type memoryMailbox struct {
	mu    sync.Mutex
	slots *gocache.Cache
	ttl   time.Duration
}

func NewMemoryMailbox(ttl time.Duration) repository.Mailbox {
	return &memoryMailbox{
		slots: gocache.New(ttl, time.Minute),
		ttl:   ttl,
	}
}

func (m *memoryMailbox) Put(ctx context.Context, email string) (string, error) {
	slot := uuid.NewString()
	m.slots.Set(slot, email, m.ttl)
	return slot, nil
}

func (m *memoryMailbox) TakeOnce(ctx context.Context, slotID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.slots.Get(slotID)
	if !ok {
		return "", entity.ErrMailboxEmpty
	}
	m.slots.Delete(slotID)
	return v.(string), nil
}
