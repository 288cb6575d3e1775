package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultSnapshotTTL bounds how stale a cached snapshot may get when no
// change notification arrives.
const DefaultSnapshotTTL = 2 * time.Minute

// SnapshotCache keeps loaded snapshots between reads.
// Only inputs are cached; summaries, aging and statements are always recomputed.
type SnapshotCache interface {
	// Get returns the cached snapshot, or nil with a nil error on a miss
	Get(ctx context.Context, tenantID uuid.UUID) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

// InvalidationMessage tells every instance to drop a tenant's snapshot
type InvalidationMessage struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Source    string    `json:"source"`
	Timestamp int64     `json:"timestamp"`
}

// CacheInvalidator fans snapshot invalidations out to other instances
type CacheInvalidator interface {
	Publish(ctx context.Context, msg InvalidationMessage) error
	// Subscribe blocks until ctx is cancelled
	Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error
	Close() error
}
