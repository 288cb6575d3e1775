package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TieredSnapshotCache reads through a local L1 and a shared L2.
// Deletes go to both tiers and are broadcast so peers drop their L1 copy.
type TieredSnapshotCache struct {
	l1          *InMemorySnapshotCache
	l2          ledger.SnapshotCache
	invalidator ledger.CacheInvalidator
	l1TTL       time.Duration
	logger      *zap.Logger

	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// TieredSnapshotCacheOption configures a TieredSnapshotCache
type TieredSnapshotCacheOption func(*TieredSnapshotCache)

// WithL1TTL caps how long a snapshot stays in the local tier
func WithL1TTL(ttl time.Duration) TieredSnapshotCacheOption {
	return func(c *TieredSnapshotCache) {
		c.l1TTL = ttl
	}
}

// WithTieredLogger sets the logger
func WithTieredLogger(logger *zap.Logger) TieredSnapshotCacheOption {
	return func(c *TieredSnapshotCache) {
		c.logger = logger
	}
}

// NewTieredSnapshotCache creates a two-tier cache. invalidator may be nil.
func NewTieredSnapshotCache(l1 *InMemorySnapshotCache, l2 ledger.SnapshotCache, invalidator ledger.CacheInvalidator, opts ...TieredSnapshotCacheOption) *TieredSnapshotCache {
	c := &TieredSnapshotCache{
		l1:          l1,
		l2:          l2,
		invalidator: invalidator,
		l1TTL:       30 * time.Second,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartInvalidationSubscription drops L1 entries named by peer broadcasts.
// It blocks until ctx is cancelled.
func (c *TieredSnapshotCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func(msg ledger.InvalidationMessage) {
		_ = c.l1.Delete(context.Background(), msg.TenantID)
		c.logger.Debug("Dropped local snapshot",
			zap.String("tenant_id", msg.TenantID.String()),
			zap.String("source", msg.Source))
	})
}

// Get tries L1 then L2, warming L1 on an L2 hit
func (c *TieredSnapshotCache) Get(ctx context.Context, tenantID uuid.UUID) (*ledger.Snapshot, error) {
	if snap, _ := c.l1.Get(ctx, tenantID); snap != nil {
		atomic.AddInt64(&c.l1Hits, 1)
		return snap, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	snap, err := c.l2.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		atomic.AddInt64(&c.l2Misses, 1)
		return nil, nil
	}
	atomic.AddInt64(&c.l2Hits, 1)

	_ = c.l1.Set(ctx, snap, c.l1TTL)
	return snap, nil
}

// Set writes both tiers. The L1 copy never outlives the shared ttl.
func (c *TieredSnapshotCache) Set(ctx context.Context, snap *ledger.Snapshot, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	_ = c.l1.Set(ctx, snap, l1TTL)
	return c.l2.Set(ctx, snap, ttl)
}

// Delete drops both tiers and tells peers to drop theirs
func (c *TieredSnapshotCache) Delete(ctx context.Context, tenantID uuid.UUID) error {
	_ = c.l1.Delete(ctx, tenantID)
	if err := c.l2.Delete(ctx, tenantID); err != nil {
		return err
	}
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, ledger.InvalidationMessage{TenantID: tenantID, Source: "delete"}); err != nil {
			c.logger.Warn("Failed to broadcast snapshot invalidation",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// TieredCacheStats holds hit/miss counters per tier
type TieredCacheStats struct {
	L1Hits   int64
	L1Misses int64
	L2Hits   int64
	L2Misses int64
}

// Stats returns the current counters
func (c *TieredSnapshotCache) Stats() TieredCacheStats {
	return TieredCacheStats{
		L1Hits:   atomic.LoadInt64(&c.l1Hits),
		L1Misses: atomic.LoadInt64(&c.l1Misses),
		L2Hits:   atomic.LoadInt64(&c.l2Hits),
		L2Misses: atomic.LoadInt64(&c.l2Misses),
	}
}

var _ ledger.SnapshotCache = (*TieredSnapshotCache)(nil)
