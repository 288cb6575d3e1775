package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBalance(t *testing.T) {
	t.Run("confirmed orders minus payments", func(t *testing.T) {
		orders := []Order{registeredOrder("o1", "c1", 1000, 1), registeredOrder("o2", "c1", 500, 2)}
		payments := []Payment{registeredPayment("p1", "c1", 300, 3)}
		assertDecimal(t, 1200, ComputeBalance(orders, payments))
	})

	t.Run("non-confirmed orders never count", func(t *testing.T) {
		draft := registeredOrder("o1", "c1", 1000, 1)
		draft.Status = OrderStatusDraft
		cancelled := registeredOrder("o2", "c1", 700, 1)
		cancelled.Status = OrderStatusCancelled
		assertDecimal(t, 0, ComputeBalance([]Order{draft, cancelled}, nil))
	})

	t.Run("overpayment gives negative balance", func(t *testing.T) {
		orders := []Order{registeredOrder("o1", "c1", 100, 1)}
		payments := []Payment{registeredPayment("p1", "c1", 250, 2)}
		assertDecimal(t, -150, ComputeBalance(orders, payments))
	})

	t.Run("malformed records are excluded", func(t *testing.T) {
		noAmount := registeredOrder("o1", "c1", 0, 1)
		noAmount.TotalAmount = decimal.NullDecimal{}
		noDate := registeredOrder("o2", "c1", 400, 1)
		noDate.OrderDate = nil
		badPayment := registeredPayment("p1", "c1", 100, 1)
		badPayment.Amount = decimal.NullDecimal{}
		good := registeredOrder("o3", "c1", 900, 1)

		assertDecimal(t, 900, ComputeBalance([]Order{noAmount, noDate, good}, []Payment{badPayment}))
	})

	t.Run("creation time substitutes for a missing date", func(t *testing.T) {
		o := registeredOrder("o1", "c1", 400, 1)
		o.OrderDate = nil
		o.CreatedAt = dayPtr(3)
		assertDecimal(t, 400, ComputeBalance([]Order{o}, nil))
	})

	t.Run("fractional amounts stay exact", func(t *testing.T) {
		o := registeredOrder("o1", "c1", 0, 1)
		o.TotalAmount = decimal.NewNullDecimal(decimal.RequireFromString("0.3"))
		p := registeredPayment("p1", "c1", 0, 1)
		p.Amount = decimal.NewNullDecimal(decimal.RequireFromString("0.1"))
		assert.True(t, decimal.RequireFromString("0.2").Equal(ComputeBalance([]Order{o}, []Payment{p})))
	})
}

func TestAggregate(t *testing.T) {
	customers := []Customer{customer("c1", "An")}

	t.Run("status filter changes purchases but not balance", func(t *testing.T) {
		confirmed := registeredOrder("o1", "c1", 1000, 1)
		draft := registeredOrder("o2", "c1", 400, 2)
		draft.Status = OrderStatusDraft
		orders := []Order{confirmed, draft}
		payments := []Payment{registeredPayment("p1", "c1", 300, 3)}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		all, _ := Aggregate(res, entity, orders, payments, StatusFilterAll)
		onlyDraft, _ := Aggregate(res, entity, orders, payments, StatusFilter("draft"))
		onlyConfirmed, _ := Aggregate(res, entity, orders, payments, StatusFilter("confirmed"))

		assertDecimal(t, 1400, all.TotalPurchased)
		assertDecimal(t, 400, onlyDraft.TotalPurchased)
		assertDecimal(t, 1000, onlyConfirmed.TotalPurchased)
		assert.Equal(t, 2, all.OrderCount)
		assert.Equal(t, 1, onlyDraft.OrderCount)

		for _, s := range []LedgerSummary{all, onlyDraft, onlyConfirmed} {
			assertDecimal(t, 700, s.Balance)
			assertDecimal(t, 300, s.TotalPaid)
		}
	})

	t.Run("last transaction ignores unconfirmed orders", func(t *testing.T) {
		confirmed := registeredOrder("o1", "c1", 1000, 1)
		draft := registeredOrder("o2", "c1", 400, 20)
		draft.Status = OrderStatusDraft
		payments := []Payment{registeredPayment("p1", "c1", 300, 10)}
		orders := []Order{confirmed, draft}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		summary, _ := Aggregate(res, entity, orders, payments, StatusFilterAll)
		require.NotNil(t, summary.LastTransactionAt)
		assert.True(t, day(10).Equal(*summary.LastTransactionAt))
	})

	t.Run("entity without transactions", func(t *testing.T) {
		res := NewNameKeyedResolver().Resolve(nil, nil, customers)
		entity, _ := res.Lookup("c1")

		summary, warnings := Aggregate(res, entity, nil, nil, StatusFilterAll)
		assert.True(t, summary.Balance.IsZero())
		assert.True(t, summary.TotalPurchased.IsZero())
		assert.Nil(t, summary.LastTransactionAt)
		assert.Empty(t, warnings)
	})

	t.Run("malformed records produce warnings", func(t *testing.T) {
		bad := registeredOrder("o1", "c1", 0, 1)
		bad.TotalAmount = decimal.NullDecimal{}
		bad.OrderDate = nil
		badPayment := registeredPayment("p1", "c1", 10, 1)
		badPayment.Date = nil
		orders := []Order{bad}
		payments := []Payment{badPayment}
		res := NewNameKeyedResolver().Resolve(orders, payments, customers)
		entity, _ := res.Lookup("c1")

		summary, warnings := Aggregate(res, entity, orders, payments, StatusFilterAll)
		assert.True(t, summary.Balance.IsZero())
		require.Len(t, warnings, 3)
		assert.Equal(t, ReasonMissingAmount, warnings[0].Reason)
		assert.Equal(t, ReasonMissingDate, warnings[1].Reason)
		assert.Equal(t, RecordKindPayment, warnings[2].RecordKind)
		assert.Equal(t, EntityID("c1"), warnings[2].EntityID)
	})
}

func TestAggregateAll(t *testing.T) {
	t.Run("sorted by balance desc then name asc", func(t *testing.T) {
		orders := []Order{
			registeredOrder("o1", "c1", 100, 1),
			registeredOrder("o2", "c2", 500, 1),
			guestOrder("o3", "Binh", 100, 1),
		}
		customers := []Customer{customer("c1", "Cuong"), customer("c2", "Dao"), customer("c3", "Anh")}
		res := NewNameKeyedResolver().Resolve(orders, nil, customers)

		summaries, warnings := AggregateAll(res, orders, nil, StatusFilterAll)
		assert.Empty(t, warnings)
		require.Len(t, summaries, 4)
		assert.Equal(t, "Dao", summaries[0].Entity.Name)
		assert.Equal(t, "Binh", summaries[1].Entity.Name)
		assert.Equal(t, "Cuong", summaries[2].Entity.Name)
		assert.Equal(t, "Anh", summaries[3].Entity.Name)
	})

	t.Run("sum of balances equals confirmed total minus paid total", func(t *testing.T) {
		orders := []Order{
			registeredOrder("o1", "c1", 100, 1),
			guestOrder("o2", "Binh", 250, 2),
			guestOrder("o3", "", 75, 3),
		}
		payments := []Payment{
			registeredPayment("p1", "c1", 40, 4),
			guestPayment("p2", "Unknown", 10, 5),
		}
		res := NewNameKeyedResolver().Resolve(orders, payments, []Customer{customer("c1", "An")})

		summaries, _ := AggregateAll(res, orders, payments, StatusFilterAll)
		sum := decimal.Zero
		for _, s := range summaries {
			sum = sum.Add(s.Balance)
		}
		assertDecimal(t, 375, sum)
	})

	t.Run("name ties broken by entity id", func(t *testing.T) {
		summaries := []LedgerSummary{
			{Entity: BillableEntity{ID: "b", Name: "Same"}, Balance: dec(1)},
			{Entity: BillableEntity{ID: "a", Name: "Same"}, Balance: dec(1)},
		}
		SortSummaries(summaries)
		assert.Equal(t, EntityID("a"), summaries[0].Entity.ID)
	})
}

func TestParseStatusFilter(t *testing.T) {
	assert.Equal(t, StatusFilterAll, ParseStatusFilter(""))
	assert.Equal(t, StatusFilterAll, ParseStatusFilter("all"))
	assert.Equal(t, StatusFilterAll, ParseStatusFilter(" ALL "))
	assert.Equal(t, StatusFilter("draft"), ParseStatusFilter("draft"))
	assert.True(t, StatusFilterAll.Matches(OrderStatusDraft))
	assert.False(t, StatusFilter("draft").Matches(OrderStatusConfirmed))
	assert.True(t, OrderStatusConfirmed.IsConfirmed())
}
