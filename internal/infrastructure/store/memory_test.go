package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xnema-web/internal/domain/entity"
)

func TestMemoryFlowRepository_SaveFind(t *testing.T) {
	repo := NewMemoryFlowRepository()
	ctx := context.Background()

	flow := &entity.RecoveryFlow{ID: "f1", State: entity.StatePasswordResetForm, Email: "a@example.com"}
	require.NoError(t, repo.Save(ctx, flow, time.Minute))

	// later mutation of the caller's copy is not visible
	flow.State = entity.StateSucceeded

	got, err := repo.Find(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatePasswordResetForm, got.State)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = repo.Find(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrFlowNotFound)
}

func TestMemoryFlowRepository_Expires(t *testing.T) {
	repo := NewMemoryFlowRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &entity.RecoveryFlow{ID: "f1"}, 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := repo.Find(ctx, "f1")
	assert.ErrorIs(t, err, entity.ErrFlowNotFound)
}

func TestMemoryFlowRepository_AcquireIsExclusive(t *testing.T) {
	repo := NewMemoryFlowRepository()
	ctx := context.Background()

	var won int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Acquire(ctx, "f1", time.Minute)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won)

	require.NoError(t, repo.Release(ctx, "f1"))
	ok, err := repo.Acquire(ctx, "f1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryFlowRepository_AcquireKeyOwnsItsBytes(t *testing.T) {
	repo := NewMemoryFlowRepository()
	ctx := context.Background()

	// a string aliasing a reusable buffer, as route params are
	buf := []byte("flow-1")
	id := unsafe.String(&buf[0], len(buf))

	ok, err := repo.Acquire(ctx, id, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	copy(buf, "zzzzzz")

	ok, err = repo.Acquire(ctx, "flow-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock must still be held under the original id")

	require.NoError(t, repo.Release(ctx, "flow-1"))
	ok, err = repo.Acquire(ctx, "flow-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryMailbox_TakeOnce(t *testing.T) {
	mb := NewMemoryMailbox(time.Minute)
	ctx := context.Background()

	slot, err := mb.Put(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, slot)

	email, err := mb.TakeOnce(ctx, slot)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	_, err = mb.TakeOnce(ctx, slot)
	assert.ErrorIs(t, err, entity.ErrMailboxEmpty)
}

func TestMemoryMailbox_ConcurrentReadersSeeValueOnce(t *testing.T) {
	mb := NewMemoryMailbox(time.Minute)
	ctx := context.Background()

	slot, err := mb.Put(ctx, "a@example.com")
	require.NoError(t, err)

	var hits int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mb.TakeOnce(ctx, slot); err == nil {
				atomic.AddInt32(&hits, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits)
}

func TestMemoryMailbox_Expires(t *testing.T) {
	mb := NewMemoryMailbox(20 * time.Millisecond)
	ctx := context.Background()

	slot, err := mb.Put(ctx, "a@example.com")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	_, err = mb.TakeOnce(ctx, slot)
	assert.ErrorIs(t, err, entity.ErrMailboxEmpty)
}
