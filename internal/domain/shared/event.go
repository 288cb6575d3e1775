package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact published on the event bus. Ledger events carry no
// derived balances, only the identity of the tenant whose records moved.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	TenantID() uuid.UUID
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e *BaseDomainEvent) EventType() string     { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *BaseDomainEvent) TenantID() uuid.UUID   { return e.TenantIDValue }

// NewBaseDomainEvent stamps a new event with a random ID and the current UTC time
func NewBaseDomainEvent(eventType string, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		TenantIDValue: tenantID,
	}
}
