package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot holds one tenant's records at a point in time.
// Records are treated as immutable for the duration of a computation.
type Snapshot struct {
	TenantID  uuid.UUID  `json:"tenant_id"`
	Orders    []Order    `json:"orders"`
	Payments  []Payment  `json:"payments"`
	Customers []Customer `json:"customers"`
	LoadedAt  time.Time  `json:"loaded_at"`
}

// Size returns the total number of records in the snapshot
func (s *Snapshot) Size() int {
	return len(s.Orders) + len(s.Payments) + len(s.Customers)
}

// Scoped returns a copy of the snapshot holding only records owned by the
// snapshot's tenant. Every foreign record is reported as a warning.
func (s *Snapshot) Scoped() (*Snapshot, []DataQualityWarning) {
	scoped := &Snapshot{
		TenantID:  s.TenantID,
		Orders:    make([]Order, 0, len(s.Orders)),
		Payments:  make([]Payment, 0, len(s.Payments)),
		Customers: make([]Customer, 0, len(s.Customers)),
		LoadedAt:  s.LoadedAt,
	}
	var warnings []DataQualityWarning

	for _, o := range s.Orders {
		if o.OwnerID != s.TenantID {
			warnings = append(warnings, foreignTenantWarning(RecordKindOrder, o.ID))
			continue
		}
		scoped.Orders = append(scoped.Orders, o)
	}
	for _, p := range s.Payments {
		if p.OwnerID != s.TenantID {
			warnings = append(warnings, foreignTenantWarning(RecordKindPayment, p.ID))
			continue
		}
		scoped.Payments = append(scoped.Payments, p)
	}
	for _, c := range s.Customers {
		if c.OwnerID != s.TenantID {
			warnings = append(warnings, foreignTenantWarning(RecordKindCustomer, c.ID))
			continue
		}
		scoped.Customers = append(scoped.Customers, c)
	}

	return scoped, warnings
}
