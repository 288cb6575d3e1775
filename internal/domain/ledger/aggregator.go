package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerSummary is the per-entity view of purchases, payments and debt.
type LedgerSummary struct {
	Entity            BillableEntity  `json:"entity"`
	TotalPurchased    decimal.Decimal `json:"total_purchased"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	Balance           decimal.Decimal `json:"balance"`
	OrderCount        int             `json:"order_count"`
	PaymentCount      int             `json:"payment_count"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
}

// IsDebtor returns true if the entity owes money
func (s LedgerSummary) IsDebtor() bool {
	return s.Balance.IsPositive()
}

// IsOverpaid returns true if the entity has paid more than it owes
func (s LedgerSummary) IsOverpaid() bool {
	return s.Balance.IsNegative()
}

// ComputeBalance returns confirmed order totals minus payment totals.
// Only usable records contribute; status filters never apply here.
func ComputeBalance(orders []Order, payments []Payment) decimal.Decimal {
	return confirmedTotal(orders).Sub(paidTotal(payments))
}

func confirmedTotal(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status.IsConfirmed() && o.Usable() {
			total = total.Add(o.TotalAmount.Decimal)
		}
	}
	return total
}

func paidTotal(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Usable() {
			total = total.Add(p.Amount.Decimal)
		}
	}
	return total
}

// Aggregate summarizes one entity. The filter decides which orders count toward
// TotalPurchased and OrderCount; Balance is always computed from confirmed orders.
func Aggregate(res *Resolution, entity BillableEntity, orders []Order, payments []Payment, filter StatusFilter) (LedgerSummary, []DataQualityWarning) {
	own, paid := res.Partition(entity.ID, orders, payments)
	return summarize(entity, own, paid, filter)
}

// AggregateAll summarizes every resolved entity and returns them sorted by
// balance descending, then name ascending.
func AggregateAll(res *Resolution, orders []Order, payments []Payment, filter StatusFilter) ([]LedgerSummary, []DataQualityWarning) {
	groups := res.Group(orders, payments)
	summaries := make([]LedgerSummary, 0, len(res.Entities))
	var warnings []DataQualityWarning

	for _, entity := range res.Entities {
		var own []Order
		var paid []Payment
		if g, ok := groups[entity.ID]; ok {
			own, paid = g.Orders, g.Payments
		}
		summary, w := summarize(entity, own, paid, filter)
		summaries = append(summaries, summary)
		warnings = append(warnings, w...)
	}

	SortSummaries(summaries)
	return summaries, warnings
}

func summarize(entity BillableEntity, orders []Order, payments []Payment, filter StatusFilter) (LedgerSummary, []DataQualityWarning) {
	summary := LedgerSummary{
		Entity:         entity,
		TotalPurchased: decimal.Zero,
		TotalPaid:      paidTotal(payments),
		Balance:        ComputeBalance(orders, payments),
	}

	var last time.Time
	for _, o := range orders {
		if !o.Usable() {
			continue
		}
		if filter.Matches(o.Status) {
			summary.TotalPurchased = summary.TotalPurchased.Add(o.TotalAmount.Decimal)
			summary.OrderCount++
		}
		if o.Status.IsConfirmed() {
			date, _ := o.EffectiveDate()
			if date.After(last) {
				last = date
			}
		}
	}
	for _, p := range payments {
		if !p.Usable() {
			continue
		}
		summary.PaymentCount++
		date, _ := p.EffectiveDate()
		if date.After(last) {
			last = date
		}
	}
	if !last.IsZero() {
		summary.LastTransactionAt = &last
	}

	return summary, recordWarnings(entity.ID, orders, payments)
}

// SortSummaries orders summaries by balance descending, name ascending and
// finally entity ID so the order is total.
func SortSummaries(summaries []LedgerSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if c := a.Balance.Cmp(b.Balance); c != 0 {
			return c > 0
		}
		if a.Entity.Name != b.Entity.Name {
			return a.Entity.Name < b.Entity.Name
		}
		return a.Entity.ID < b.Entity.ID
	})
}
