package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionFeed loads a tenant's current records
type TransactionFeed interface {
	LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (*Snapshot, error)
}

// EventTypeRecordsChanged is published whenever orders, payments or customers change
const EventTypeRecordsChanged = "ledger.records_changed"

// RecordsChangedEvent signals that derived ledger views of a tenant are stale
type RecordsChangedEvent struct {
	shared.BaseDomainEvent
	Source string `json:"source"`
	Table  string `json:"table,omitempty"`
}

// NewRecordsChangedEvent creates a new RecordsChangedEvent
func NewRecordsChangedEvent(tenantID uuid.UUID, source, table string) *RecordsChangedEvent {
	return &RecordsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecordsChanged, tenantID),
		Source:          source,
		Table:           table,
	}
}

// StaticFeed serves snapshots held in memory
type StaticFeed struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*Snapshot
}

// NewStaticFeed creates a feed preloaded with the given snapshots
func NewStaticFeed(snapshots ...*Snapshot) *StaticFeed {
	f := &StaticFeed{snapshots: make(map[uuid.UUID]*Snapshot)}
	for _, s := range snapshots {
		f.Put(s)
	}
	return f
}

// Put replaces the snapshot of the snapshot's tenant
func (f *StaticFeed) Put(s *Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[s.TenantID] = s
}

// LoadSnapshot returns a copy of the tenant's snapshot, or an empty one
func (f *StaticFeed) LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	s, ok := f.snapshots[tenantID]
	if !ok {
		return &Snapshot{TenantID: tenantID, LoadedAt: time.Now()}, nil
	}
	return &Snapshot{
		TenantID:  s.TenantID,
		Orders:    append([]Order(nil), s.Orders...),
		Payments:  append([]Payment(nil), s.Payments...),
		Customers: append([]Customer(nil), s.Customers...),
		LoadedAt:  s.LoadedAt,
	}, nil
}
