package ledger

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketForDays(t *testing.T) {
	tests := []struct {
		days int
		want AgingBucket
	}{
		{-3, AgingBucketUnder30},
		{0, AgingBucketUnder30},
		{29, AgingBucketUnder30},
		{30, AgingBucket30To60},
		{59, AgingBucket30To60},
		{60, AgingBucket60To90},
		{89, AgingBucket60To90},
		{90, AgingBucketOver90},
		{400, AgingBucketOver90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketForDays(tt.days), "days=%d", tt.days)
	}
	assert.Len(t, AllAgingBuckets(), 4)
}

func TestClassify(t *testing.T) {
	customers := []Customer{customer("c1", "An")}

	t.Run("partial payment ages the first uncovered order", func(t *testing.T) {
		orders := []Order{
			registeredOrder("o1", "c1", 1_000_000, 1),
			registeredOrder("o2", "c1", 2_000_000, 40),
		}
		payments := []Payment{registeredPayment("p1", "c1", 1_000_000, 2)}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		result, ok := Classify(res, entity, orders, payments, day(50), utcCal)
		require.True(t, ok)
		assertDecimal(t, 2_000_000, result.Balance)
		assert.Equal(t, "o2", result.OldestUnpaidOrderID)
		assert.Equal(t, 10, result.DaysOverdue)
		assert.Equal(t, AgingBucketUnder30, result.Bucket)
	})

	t.Run("partially covered order is still the oldest unpaid", func(t *testing.T) {
		orders := []Order{
			registeredOrder("o1", "c1", 1000, 1),
			registeredOrder("o2", "c1", 1000, 70),
		}
		payments := []Payment{registeredPayment("p1", "c1", 400, 80)}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		result, ok := Classify(res, entity, orders, payments, day(101), utcCal)
		require.True(t, ok)
		assert.Equal(t, "o1", result.OldestUnpaidOrderID)
		assert.Equal(t, 100, result.DaysOverdue)
		assert.Equal(t, AgingBucketOver90, result.Bucket)
	})

	t.Run("orders are sorted by date regardless of input order", func(t *testing.T) {
		orders := []Order{
			registeredOrder("late", "c1", 500, 60),
			registeredOrder("early", "c1", 500, 1),
		}
		payments := []Payment{registeredPayment("p1", "c1", 500, 61)}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		result, ok := Classify(res, entity, orders, payments, day(95), utcCal)
		require.True(t, ok)
		assert.Equal(t, "late", result.OldestUnpaidOrderID)
		assert.Equal(t, AgingBucket30To60, result.Bucket)
	})

	t.Run("unconfirmed orders are ignored", func(t *testing.T) {
		draft := registeredOrder("draft", "c1", 5000, 1)
		draft.Status = OrderStatusDraft
		orders := []Order{draft, registeredOrder("o1", "c1", 100, 50)}
		res := NewNameKeyedResolver().Resolve(orders, nil, customers)
		entity, _ := res.Lookup("c1")

		result, ok := Classify(res, entity, orders, nil, day(50), utcCal)
		require.True(t, ok)
		assert.Equal(t, "o1", result.OldestUnpaidOrderID)
		assert.Equal(t, 0, result.DaysOverdue)
	})

	t.Run("settled and overpaid entities are not classified", func(t *testing.T) {
		orders := []Order{registeredOrder("o1", "c1", 100, 1)}
		payments := []Payment{registeredPayment("p1", "c1", 100, 2)}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		_, ok := Classify(res, entity, orders, payments, day(200), utcCal)
		assert.False(t, ok)

		payments = append(payments, registeredPayment("p2", "c1", 50, 3))
		_, ok = Classify(res, entity, orders, payments, day(200), utcCal)
		assert.False(t, ok)
	})

	t.Run("future order clamps to zero days", func(t *testing.T) {
		orders := []Order{registeredOrder("o1", "c1", 100, 30)}
		res := NewNameKeyedResolver().Resolve(orders, nil, customers)
		entity, _ := res.Lookup("c1")

		result, ok := Classify(res, entity, orders, nil, day(10), utcCal)
		require.True(t, ok)
		assert.Equal(t, 0, result.DaysOverdue)
		assert.Equal(t, AgingBucketUnder30, result.Bucket)
	})

	t.Run("days are counted in calendar days of the location", func(t *testing.T) {
		loc := time.FixedZone("ICT", 7*3600)
		cal := NewCalendar(loc)
		// 23:30 UTC on Jan 1 is already Jan 2 in ICT
		o := registeredOrder("o1", "c1", 100, 1)
		o.OrderDate = timePtr(time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC))
		orders := []Order{o}
		res := NewNameKeyedResolver().Resolve(orders, nil, customers)
		entity, _ := res.Lookup("c1")

		result, ok := Classify(res, entity, orders, nil, time.Date(2024, 1, 31, 1, 0, 0, 0, loc), cal)
		require.True(t, ok)
		assert.Equal(t, 29, result.DaysOverdue)
		assert.Equal(t, AgingBucketUnder30, result.Bucket)
	})
}

func TestBuildAgingReport(t *testing.T) {
	orders := []Order{
		registeredOrder("o1", "c1", 1000, 1),
		registeredOrder("o2", "c2", 500, 60),
		guestOrder("o3", "Giang", 300, 95),
		guestOrder("o4", "Paid Up", 200, 10),
		registeredOrder("o5", "c3", 50, 100),
	}
	payments := []Payment{
		guestPayment("p1", "Paid Up", 200, 11),
		registeredPayment("p2", "c3", 80, 100),
	}
	customers := []Customer{customer("c1", "An"), customer("c2", "Binh"), customer("c3", "Cuong"), customer("c4", "Dung")}
	res := NewNameKeyedResolver().Resolve(orders, payments, customers)

	report, warnings := BuildAgingReport(res, orders, payments, day(101), utcCal)
	assert.Empty(t, warnings)

	t.Run("only debtors are bucketed", func(t *testing.T) {
		assert.Len(t, report.Buckets, 3)
		assert.Equal(t, AgingBucketOver90, report.Buckets["c1"])
		assert.Equal(t, AgingBucket30To60, report.Buckets["c2"])
		assert.Equal(t, AgingBucketUnder30, report.Buckets[GuestEntityID("Giang")])
		_, ok := report.Buckets["c4"]
		assert.False(t, ok)
		_, ok = report.Buckets["c3"]
		assert.False(t, ok)
		assert.Empty(t, report.Unclassified)
	})

	t.Run("entries sorted oldest first", func(t *testing.T) {
		require.Len(t, report.Entries, 3)
		assert.Equal(t, EntityID("c1"), report.Entries[0].Entity.ID)
		assert.Equal(t, EntityID("c2"), report.Entries[1].Entity.ID)
	})

	t.Run("totals per bucket", func(t *testing.T) {
		require.Len(t, report.Totals, 4)
		assert.Equal(t, AgingBucketUnder30, report.Totals[0].Bucket)
		assert.Equal(t, 1, report.Totals[0].EntityCount)
		assertDecimal(t, 300, report.Totals[0].Outstanding)
		assert.Equal(t, 1, report.Totals[1].EntityCount)
		assert.Equal(t, 0, report.Totals[2].EntityCount)
		assertDecimal(t, 0, report.Totals[2].Outstanding)
		assertDecimal(t, 1000, report.Totals[3].Outstanding)
		assertDecimal(t, 1800, report.TotalOutstanding)
	})

	t.Run("older debt never sits in a younger bucket", func(t *testing.T) {
		rank := func(b AgingBucket) int { return slices.Index(AllAgingBuckets(), b) }
		for _, a := range report.Entries {
			for _, b := range report.Entries {
				if a.DaysOverdue > b.DaysOverdue {
					assert.GreaterOrEqual(t, rank(a.Bucket), rank(b.Bucket), "%s vs %s", a.Entity.ID, b.Entity.ID)
				}
			}
		}
	})
}
