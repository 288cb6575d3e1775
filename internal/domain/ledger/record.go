package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle status of a sales order.
// The set is open: unknown values are carried through untouched.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsConfirmed returns true if the order generates debt
func (s OrderStatus) IsConfirmed() bool {
	return s == OrderStatusConfirmed
}

// String returns the string representation
func (s OrderStatus) String() string {
	return string(s)
}

// StatusFilter restricts which orders contribute to the displayed purchase total.
// It never affects balances.
type StatusFilter string

// StatusFilterAll shows every order regardless of status
const StatusFilterAll StatusFilter = "ALL"

// ParseStatusFilter converts a raw query value to a StatusFilter.
// Empty input and any casing of "all" map to StatusFilterAll.
func ParseStatusFilter(raw string) StatusFilter {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, string(StatusFilterAll)) {
		return StatusFilterAll
	}
	return StatusFilter(raw)
}

// Matches reports whether an order with the given status passes the filter
func (f StatusFilter) Matches(status OrderStatus) bool {
	if f == "" || f == StatusFilterAll {
		return true
	}
	return strings.EqualFold(string(f), string(status))
}

// Order is a sales order as read from the record store.
type Order struct {
	ID              string              `json:"id"`
	OwnerID         uuid.UUID           `json:"owner_id"`
	CustomerID      *string             `json:"customer_id,omitempty"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	CustomerAddress string              `json:"customer_address,omitempty"`
	Status          OrderStatus         `json:"status"`
	TotalAmount     decimal.NullDecimal `json:"total_amount"`
	OrderDate       *time.Time          `json:"order_date,omitempty"`
	CreatedAt       *time.Time          `json:"created_at,omitempty"`
}

// EffectiveDate returns the order date, falling back to the creation timestamp
func (o Order) EffectiveDate() (time.Time, bool) {
	return effectiveDate(o.OrderDate, o.CreatedAt)
}

// Usable reports whether the order can take part in any sum
func (o Order) Usable() bool {
	_, ok := o.EffectiveDate()
	return ok && o.TotalAmount.Valid
}

// Payment is a recorded customer payment.
type Payment struct {
	ID           string              `json:"id"`
	OwnerID      uuid.UUID           `json:"owner_id"`
	CustomerID   *string             `json:"customer_id,omitempty"`
	CustomerName string              `json:"customer_name,omitempty"`
	Amount       decimal.NullDecimal `json:"amount"`
	Date         *time.Time          `json:"date,omitempty"`
	CreatedAt    *time.Time          `json:"created_at,omitempty"`
	Method       string              `json:"method,omitempty"`
	Note         string              `json:"note,omitempty"`
}

// EffectiveDate returns the payment date, falling back to the creation timestamp
func (p Payment) EffectiveDate() (time.Time, bool) {
	return effectiveDate(p.Date, p.CreatedAt)
}

// Usable reports whether the payment can take part in any sum
func (p Payment) Usable() bool {
	_, ok := p.EffectiveDate()
	return ok && p.Amount.Valid
}

// Customer is a registered customer record.
type Customer struct {
	ID      string    `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone,omitempty"`
	Address string    `json:"address,omitempty"`
}

func effectiveDate(explicit, created *time.Time) (time.Time, bool) {
	if explicit != nil && !explicit.IsZero() {
		return *explicit, true
	}
	if created != nil && !created.IsZero() {
		return *created, true
	}
	return time.Time{}, false
}

func createdAtOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func customerRef(id *string) string {
	if id == nil {
		return ""
	}
	return strings.TrimSpace(*id)
}
