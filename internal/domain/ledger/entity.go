package ledger

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EntityID identifies a billable entity within one tenant
type EntityID string

// String returns the string representation
func (id EntityID) String() string {
	return string(id)
}

// EntityKind distinguishes registered customers from walk-in guests
type EntityKind string

const (
	EntityKindRegistered EntityKind = "registered"
	EntityKindGuest      EntityKind = "guest"
)

const (
	// GuestIDPrefix prefixes every synthetic guest identifier
	GuestIDPrefix = "guest:"
	// RegisteredIDEscape prefixes registered customer IDs that would otherwise
	// read as a guest identifier
	RegisteredIDEscape = "customer:"
	// DefaultGuestPlaceholder names guests whose orders carry no customer name
	DefaultGuestPlaceholder = "Khách vãng lai"
)

// BillableEntity is anyone who can owe money: a registered customer or a guest
// identified only by the name written on their orders.
type BillableEntity struct {
	ID         EntityID   `json:"id"`
	Kind       EntityKind `json:"kind"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone,omitempty"`
	Address    string     `json:"address,omitempty"`
	CustomerID string     `json:"customer_id,omitempty"`
}

// IsGuest returns true for unregistered entities
func (e BillableEntity) IsGuest() bool {
	return e.Kind == EntityKindGuest
}

// IsGuestID reports whether the identifier was synthesized for a guest
func IsGuestID(id EntityID) bool {
	return strings.HasPrefix(string(id), GuestIDPrefix)
}

// RegisteredEntityID returns the entity identifier of a registered customer.
// It is the customer ID itself unless that ID starts with GuestIDPrefix or
// RegisteredIDEscape, in which case it is escaped, so registered and guest
// identifiers never collide.
func RegisteredEntityID(customerID string) EntityID {
	if strings.HasPrefix(customerID, GuestIDPrefix) || strings.HasPrefix(customerID, RegisteredIDEscape) {
		return EntityID(RegisteredIDEscape + customerID)
	}
	return EntityID(customerID)
}

// GuestEntityID builds the synthetic identifier for a guest key
func GuestEntityID(key string) EntityID {
	return EntityID(GuestIDPrefix + key)
}

// GuestKeyFunc maps a display name to the key that groups guest transactions
type GuestKeyFunc func(name string) string

// NormalizeGuestName is the default GuestKeyFunc. It applies Unicode NFC and
// collapses runs of whitespace. Case is preserved.
func NormalizeGuestName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}
