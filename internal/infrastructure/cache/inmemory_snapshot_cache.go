package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

type snapshotEntry struct {
	snap      *ledger.Snapshot
	expiresAt time.Time
}

// InMemorySnapshotCache keeps tenant snapshots in process memory.
// Suitable for single-instance deployments and testing.
type InMemorySnapshotCache struct {
	mu              sync.RWMutex
	entries         map[uuid.UUID]snapshotEntry
	cleanupInterval time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
	closeOnce       sync.Once
}

// InMemorySnapshotCacheOption configures an InMemorySnapshotCache
type InMemorySnapshotCacheOption func(*InMemorySnapshotCache)

// WithCleanupInterval sets how often expired snapshots are evicted
func WithCleanupInterval(d time.Duration) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// NewInMemorySnapshotCache creates the cache and starts its cleanup goroutine
func NewInMemorySnapshotCache(opts ...InMemorySnapshotCacheOption) *InMemorySnapshotCache {
	c := &InMemorySnapshotCache{
		entries:         make(map[uuid.UUID]snapshotEntry),
		cleanupInterval: time.Minute,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the tenant's snapshot, or nil when absent or expired
func (c *InMemorySnapshotCache) Get(ctx context.Context, tenantID uuid.UUID) (*ledger.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[tenantID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	return e.snap, nil
}

// Set stores the snapshot under its tenant. A non-positive ttl stores nothing.
func (c *InMemorySnapshotCache) Set(ctx context.Context, snap *ledger.Snapshot, ttl time.Duration) error {
	if snap == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snap.TenantID] = snapshotEntry{
		snap:      snap,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete drops the tenant's snapshot
func (c *InMemorySnapshotCache) Delete(ctx context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

// Clear drops every snapshot
func (c *InMemorySnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]snapshotEntry)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemorySnapshotCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemorySnapshotCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemorySnapshotCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for tenantID, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, tenantID)
		}
	}
}

// Size returns the number of stored snapshots, expired ones included
func (c *InMemorySnapshotCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ ledger.SnapshotCache = (*InMemorySnapshotCache)(nil)
