package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	testTenant  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	otherTenant = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	utcCal      = NewCalendar(time.UTC)
	baseDay     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// day returns midnight of day n, with day 1 being 2024-01-01
func day(n int) time.Time {
	return baseDay.AddDate(0, 0, n-1)
}

func dayPtr(n int) *time.Time {
	d := day(n)
	return &d
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func strPtr(s string) *string {
	return &s
}

func amount(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func registeredOrder(id, customerID string, total int64, d int) Order {
	return Order{
		ID:           id,
		OwnerID:      testTenant,
		CustomerID:   strPtr(customerID),
		CustomerName: "ignored",
		Status:       OrderStatusConfirmed,
		TotalAmount:  amount(total),
		OrderDate:    dayPtr(d),
	}
}

func guestOrder(id, name string, total int64, d int) Order {
	return Order{
		ID:           id,
		OwnerID:      testTenant,
		CustomerName: name,
		Status:       OrderStatusConfirmed,
		TotalAmount:  amount(total),
		OrderDate:    dayPtr(d),
	}
}

func registeredPayment(id, customerID string, paid int64, d int) Payment {
	return Payment{
		ID:         id,
		OwnerID:    testTenant,
		CustomerID: strPtr(customerID),
		Amount:     amount(paid),
		Date:       dayPtr(d),
	}
}

func guestPayment(id, name string, paid int64, d int) Payment {
	return Payment{
		ID:           id,
		OwnerID:      testTenant,
		CustomerName: name,
		Amount:       amount(paid),
		Date:         dayPtr(d),
	}
}

func customer(id, name string) Customer {
	return Customer{ID: id, OwnerID: testTenant, Name: name}
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %d, got %s", want, got.String()}, msgAndArgs...)...)
}
