package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotInvalidator drops cached snapshots of a tenant
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// CacheInvalidationHandler handles RecordsChangedEvent
// by dropping the tenant's cached snapshot
type CacheInvalidationHandler struct {
	invalidator SnapshotInvalidator
	logger      *zap.Logger
}

// NewCacheInvalidationHandler creates a new handler for records changed events
func NewCacheInvalidationHandler(invalidator SnapshotInvalidator, logger *zap.Logger) *CacheInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidationHandler{
		invalidator: invalidator,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CacheInvalidationHandler) EventTypes() []string {
	return []string{ledger.EventTypeRecordsChanged}
}

// Handle processes a RecordsChangedEvent
func (h *CacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*ledger.RecordsChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", ledger.EventTypeRecordsChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ledger.EventTypeRecordsChanged, event.EventType())
	}

	if err := h.invalidator.Invalidate(ctx, changed.TenantID()); err != nil {
		h.logger.Error("failed to invalidate ledger snapshot",
			zap.String("tenant_id", changed.TenantID().String()),
			zap.String("source", changed.Source),
			zap.Error(err),
		)
		return err
	}

	h.logger.Debug("ledger snapshot invalidated",
		zap.String("tenant_id", changed.TenantID().String()),
		zap.String("source", changed.Source),
		zap.String("table", changed.Table),
	)
	return nil
}

// Ensure CacheInvalidationHandler implements shared.EventHandler
var _ shared.EventHandler = (*CacheInvalidationHandler)(nil)

var _ SnapshotInvalidator = (*LedgerService)(nil)
