package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshot(tenantID uuid.UUID) *ledger.Snapshot {
	return &ledger.Snapshot{
		TenantID: tenantID,
		Orders:   []ledger.Order{{ID: "o-1", OwnerID: tenantID, CustomerName: "An"}},
		LoadedAt: time.Now(),
	}
}

func TestInMemorySnapshotCache_GetSet(t *testing.T) {
	c := NewInMemorySnapshotCache()
	defer c.Close()
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("miss returns nil without error", func(t *testing.T) {
		snap, err := c.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("hit returns stored snapshot", func(t *testing.T) {
		want := newSnapshot(tenantID)
		require.NoError(t, c.Set(ctx, want, time.Minute))

		got, err := c.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Same(t, want, got)
	})

	t.Run("delete removes snapshot", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, tenantID))
		got, _ := c.Get(ctx, tenantID)
		assert.Nil(t, got)
	})

	t.Run("non-positive ttl stores nothing", func(t *testing.T) {
		other := uuid.New()
		require.NoError(t, c.Set(ctx, newSnapshot(other), 0))
		got, _ := c.Get(ctx, other)
		assert.Nil(t, got)
		assert.NoError(t, c.Set(ctx, nil, time.Minute))
	})
}

func TestInMemorySnapshotCache_Expiration(t *testing.T) {
	c := NewInMemorySnapshotCache(WithCleanupInterval(5 * time.Millisecond))
	defer c.Close()
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, c.Set(ctx, newSnapshot(tenantID), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	got, err := c.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestInMemorySnapshotCache_Clear(t *testing.T) {
	c := NewInMemorySnapshotCache()
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, newSnapshot(uuid.New()), time.Minute))
	}
	assert.Equal(t, 3, c.Size())
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestInMemorySnapshotCache_CloseIdempotent(t *testing.T) {
	c := NewInMemorySnapshotCache()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestInMemorySnapshotCache_Concurrent(t *testing.T) {
	c := NewInMemorySnapshotCache()
	defer c.Close()
	ctx := context.Background()
	tenants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tenantID := tenants[i%len(tenants)]
			_ = c.Set(ctx, newSnapshot(tenantID), time.Minute)
			_, _ = c.Get(ctx, tenantID)
			if i%7 == 0 {
				_ = c.Delete(ctx, tenantID)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), len(tenants))
}
