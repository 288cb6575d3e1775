package ledger

import (
	"sort"
	"time"
)

// datedOrder is a usable order with its effective date resolved
type datedOrder struct {
	Order
	at  time.Time
	day time.Time
	seq int
}

// datedPayment is a usable payment with its effective date resolved
type datedPayment struct {
	Payment
	at  time.Time
	day time.Time
	seq int
}

func datedOrders(orders []Order, cal Calendar, confirmedOnly bool) []datedOrder {
	out := make([]datedOrder, 0, len(orders))
	for i, o := range orders {
		if !o.Usable() || (confirmedOnly && !o.Status.IsConfirmed()) {
			continue
		}
		at, _ := o.EffectiveDate()
		out = append(out, datedOrder{Order: o, at: at, day: cal.Day(at), seq: i})
	}
	return out
}

func datedPayments(payments []Payment, cal Calendar) []datedPayment {
	out := make([]datedPayment, 0, len(payments))
	for i, p := range payments {
		if !p.Usable() {
			continue
		}
		at, _ := p.EffectiveDate()
		out = append(out, datedPayment{Payment: p, at: at, day: cal.Day(at), seq: i})
	}
	return out
}

// sortOrdersOldestFirst orders by calendar day, then creation time, then input position
func sortOrdersOldestFirst(orders []datedOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.day.Equal(b.day) {
			return a.day.Before(b.day)
		}
		ca, cb := createdAtOrZero(a.CreatedAt), createdAtOrZero(b.CreatedAt)
		if !ca.Equal(cb) {
			return ca.Before(cb)
		}
		return a.seq < b.seq
	})
}
