package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AgingBucket is a debt age range in whole days
type AgingBucket string

const (
	AgingBucketUnder30 AgingBucket = "<30d"   // [0, 30)
	AgingBucket30To60  AgingBucket = "30-60d" // [30, 60)
	AgingBucket60To90  AgingBucket = "60-90d" // [60, 90)
	AgingBucketOver90  AgingBucket = ">=90d"  // [90, ∞)
)

// AllAgingBuckets returns every bucket from youngest to oldest
func AllAgingBuckets() []AgingBucket {
	return []AgingBucket{
		AgingBucketUnder30,
		AgingBucket30To60,
		AgingBucket60To90,
		AgingBucketOver90,
	}
}

// String returns the string representation
func (b AgingBucket) String() string {
	return string(b)
}

// BucketForDays maps an age in days to its bucket. Negative ages count as current.
func BucketForDays(days int) AgingBucket {
	switch {
	case days < 30:
		return AgingBucketUnder30
	case days < 60:
		return AgingBucket30To60
	case days < 90:
		return AgingBucket60To90
	default:
		return AgingBucketOver90
	}
}

// AgingResult explains why a debtor sits in its bucket
type AgingResult struct {
	Entity                BillableEntity  `json:"entity"`
	Balance               decimal.Decimal `json:"balance"`
	TotalPaid             decimal.Decimal `json:"total_paid"`
	OldestUnpaidOrderID   string          `json:"oldest_unpaid_order_id"`
	OldestUnpaidOrderDate time.Time       `json:"oldest_unpaid_order_date"`
	DaysOverdue           int             `json:"days_overdue"`
	Bucket                AgingBucket     `json:"bucket"`
}

// Classify ages one entity's debt. Payments are applied to confirmed orders
// oldest first; the first order not fully covered is the oldest unpaid order
// and its age picks the bucket. The second return value is false when the
// entity has no debt or its debt cannot be traced to an order.
func Classify(res *Resolution, entity BillableEntity, orders []Order, payments []Payment, asOf time.Time, cal Calendar) (AgingResult, bool) {
	own, paid := res.Partition(entity.ID, orders, payments)
	result, outcome := classify(entity, own, paid, asOf, cal)
	return result, outcome == agingClassified
}

type agingOutcome int

const (
	agingNotOwed agingOutcome = iota
	agingClassified
	agingUntraceable
)

func classify(entity BillableEntity, orders []Order, payments []Payment, asOf time.Time, cal Calendar) (AgingResult, agingOutcome) {
	balance := ComputeBalance(orders, payments)
	result := AgingResult{
		Entity:    entity,
		Balance:   balance,
		TotalPaid: paidTotal(payments),
	}
	if !balance.IsPositive() {
		return result, agingNotOwed
	}

	confirmed := datedOrders(orders, cal, true)
	sortOrdersOldestFirst(confirmed)

	running := decimal.Zero
	for _, o := range confirmed {
		running = running.Add(o.TotalAmount.Decimal)
		if running.GreaterThan(result.TotalPaid) {
			days := cal.DaysBetween(o.at, asOf)
			if days < 0 {
				days = 0
			}
			result.OldestUnpaidOrderID = o.ID
			result.OldestUnpaidOrderDate = o.day
			result.DaysOverdue = days
			result.Bucket = BucketForDays(days)
			return result, agingClassified
		}
	}

	return result, agingUntraceable
}

// BucketTotal aggregates the debtors in one bucket
type BucketTotal struct {
	Bucket      AgingBucket     `json:"bucket"`
	EntityCount int             `json:"entity_count"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// UnclassifiedDebt is a debtor whose balance could not be traced to an order
type UnclassifiedDebt struct {
	Entity  BillableEntity  `json:"entity"`
	Balance decimal.Decimal `json:"balance"`
}

// AgingReport is the tenant-wide debt aging view
type AgingReport struct {
	AsOf             time.Time                `json:"as_of"`
	Buckets          map[EntityID]AgingBucket `json:"buckets"`
	Entries          []AgingResult            `json:"entries"`
	Totals           []BucketTotal            `json:"totals"`
	Unclassified     []UnclassifiedDebt       `json:"unclassified"`
	TotalOutstanding decimal.Decimal          `json:"total_outstanding"`
}

// BuildAgingReport classifies every entity with a positive balance. Entities
// that owe nothing are absent; untraceable debtors are listed as unclassified
// and reported as warnings rather than placed in a bucket.
func BuildAgingReport(res *Resolution, orders []Order, payments []Payment, asOf time.Time, cal Calendar) (*AgingReport, []DataQualityWarning) {
	report := &AgingReport{
		AsOf:             asOf,
		Buckets:          make(map[EntityID]AgingBucket),
		Entries:          make([]AgingResult, 0),
		Totals:           make([]BucketTotal, 0, 4),
		Unclassified:     make([]UnclassifiedDebt, 0),
		TotalOutstanding: decimal.Zero,
	}
	totals := make(map[AgingBucket]*BucketTotal, 4)
	for _, b := range AllAgingBuckets() {
		totals[b] = &BucketTotal{Bucket: b, Outstanding: decimal.Zero}
	}

	groups := res.Group(orders, payments)
	var warnings []DataQualityWarning

	for _, entity := range res.Entities {
		g, ok := groups[entity.ID]
		if !ok {
			continue
		}
		warnings = append(warnings, recordWarnings(entity.ID, g.Orders, g.Payments)...)

		result, outcome := classify(entity, g.Orders, g.Payments, asOf, cal)
		switch outcome {
		case agingClassified:
			report.Buckets[entity.ID] = result.Bucket
			report.Entries = append(report.Entries, result)
			t := totals[result.Bucket]
			t.EntityCount++
			t.Outstanding = t.Outstanding.Add(result.Balance)
			report.TotalOutstanding = report.TotalOutstanding.Add(result.Balance)
		case agingUntraceable:
			report.Unclassified = append(report.Unclassified, UnclassifiedDebt{Entity: entity, Balance: result.Balance})
			warnings = append(warnings, DataQualityWarning{
				RecordKind: RecordKindEntity,
				RecordID:   entity.ID.String(),
				EntityID:   entity.ID,
				Reason:     ReasonInconsistentBalance,
				Message:    fmt.Sprintf("balance %s of %s is not covered by any confirmed order", result.Balance.String(), entity.Name),
			})
		}
	}

	for _, b := range AllAgingBuckets() {
		report.Totals = append(report.Totals, *totals[b])
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		if c := a.Balance.Cmp(b.Balance); c != 0 {
			return c > 0
		}
		return a.Entity.ID < b.Entity.ID
	})

	return report, warnings
}
