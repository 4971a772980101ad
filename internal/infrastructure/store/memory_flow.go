package store

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
)

type memoryFlowRepository struct {
	flows *gocache.Cache
	locks *gocache.Cache
}

func NewMemoryFlowRepository() repository.FlowRepository {
	return &memoryFlowRepository{
		flows: gocache.New(gocache.NoExpiration, time.Minute),
		locks: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (r *memoryFlowRepository) Save(ctx context.Context, flow *entity.RecoveryFlow, ttl time.Duration) error {
	// Store a copy so callers cannot mutate the stored record
	stored := *flow
	stored.ID = strings.Clone(flow.ID)
	r.flows.Set(stored.ID, &stored, ttl)
	return nil
}

func (r *memoryFlowRepository) Find(ctx context.Context, id string) (*entity.RecoveryFlow, error) {
	v, ok := r.flows.Get(id)
	if !ok {
		return nil, entity.ErrFlowNotFound
	}
	flow := *v.(*entity.RecoveryFlow)
	return &flow, nil
}

func (r *memoryFlowRepository) Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	// Add fails when the key exists, which makes it a test-and-set.
	// The key outlives the request, so it must not share the caller's buffer.
	if err := r.locks.Add(strings.Clone(id), struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *memoryFlowRepository) Release(ctx context.Context, id string) error {
	r.locks.Delete(id)
	return nil
}
