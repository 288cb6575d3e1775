package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordModel provides the persistence fields shared by the ledger source tables.
// IDs are opaque strings assigned by the record store.
type RecordModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}
