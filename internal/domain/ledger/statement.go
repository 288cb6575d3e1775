package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StatementRange bounds a statement by calendar day, both ends inclusive.
// A nil Start means "from the first transaction".
type StatementRange struct {
	Start *time.Time
	End   time.Time
}

// LineKind distinguishes debit lines from credit lines
type LineKind string

const (
	LineKindOrder   LineKind = "order"   // debit
	LineKindPayment LineKind = "payment" // credit
)

// StatementLine is a single dated movement on an entity's account
type StatementLine struct {
	Kind           LineKind        `json:"kind"`
	RecordID       string          `json:"record_id"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Statement is a chronological account statement for one entity.
// ClosingBalance plus TrailingNet always equals the entity's current balance.
type Statement struct {
	Entity         BillableEntity  `json:"entity"`
	RangeStart     *time.Time      `json:"range_start,omitempty"`
	RangeEnd       time.Time       `json:"range_end"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []StatementLine `json:"lines"`
	DebitTotal     decimal.Decimal `json:"debit_total"`
	CreditTotal    decimal.Decimal `json:"credit_total"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TrailingNet    decimal.Decimal `json:"trailing_net"` // activity dated after RangeEnd
}

// BuildStatement produces the statement of one entity over a day range.
// Activity before the range folds into the opening balance, activity after
// it into TrailingNet. Only confirmed orders and usable payments appear.
func BuildStatement(res *Resolution, entity BillableEntity, orders []Order, payments []Payment, rng StatementRange, cal Calendar) (*Statement, []DataQualityWarning, error) {
	own, paid := res.Partition(entity.ID, orders, payments)
	return buildStatement(entity, own, paid, rng, cal)
}

func buildStatement(entity BillableEntity, orders []Order, payments []Payment, rng StatementRange, cal Calendar) (*Statement, []DataQualityWarning, error) {
	end := cal.Day(rng.End)
	var start *time.Time
	if rng.Start != nil {
		s := cal.Day(*rng.Start)
		if s.After(end) {
			return nil, nil, shared.NewDomainError(shared.CodeInvalidRange,
				fmt.Sprintf("statement start %s is after end %s", s.Format(time.DateOnly), end.Format(time.DateOnly)))
		}
		start = &s
	}

	stmt := &Statement{
		Entity:         entity,
		RangeStart:     start,
		RangeEnd:       end,
		OpeningBalance: decimal.Zero,
		Lines:          make([]StatementLine, 0),
		DebitTotal:     decimal.Zero,
		CreditTotal:    decimal.Zero,
		TrailingNet:    decimal.Zero,
	}

	type movement struct {
		line    StatementLine
		created time.Time
		at      time.Time
		seq     int
	}
	var inRange []movement
	seq := 0

	for _, o := range datedOrders(orders, cal, true) {
		amount := o.TotalAmount.Decimal
		switch {
		case start != nil && o.day.Before(*start):
			stmt.OpeningBalance = stmt.OpeningBalance.Add(amount)
		case o.day.After(end):
			stmt.TrailingNet = stmt.TrailingNet.Add(amount)
		default:
			inRange = append(inRange, movement{
				line: StatementLine{
					Kind:        LineKindOrder,
					RecordID:    o.ID,
					Date:        o.day,
					Description: fmt.Sprintf("Order %s", o.ID),
					Debit:       amount,
					Credit:      decimal.Zero,
				},
				created: createdAtOrZero(o.CreatedAt),
				at:      o.at,
				seq:     seq,
			})
		}
		seq++
	}

	for _, p := range datedPayments(payments, cal) {
		amount := p.Amount.Decimal
		switch {
		case start != nil && p.day.Before(*start):
			stmt.OpeningBalance = stmt.OpeningBalance.Sub(amount)
		case p.day.After(end):
			stmt.TrailingNet = stmt.TrailingNet.Sub(amount)
		default:
			inRange = append(inRange, movement{
				line: StatementLine{
					Kind:        LineKindPayment,
					RecordID:    p.ID,
					Date:        p.day,
					Description: paymentDescription(p.Payment),
					Debit:       decimal.Zero,
					Credit:      amount,
				},
				created: createdAtOrZero(p.CreatedAt),
				at:      p.at,
				seq:     seq,
			})
		}
		seq++
	}

	sort.SliceStable(inRange, func(i, j int) bool {
		a, b := inRange[i], inRange[j]
		if !a.line.Date.Equal(b.line.Date) {
			return a.line.Date.Before(b.line.Date)
		}
		// same day: creation order across both kinds
		if !a.created.Equal(b.created) {
			return a.created.Before(b.created)
		}
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		return a.seq < b.seq
	})

	running := stmt.OpeningBalance
	for _, m := range inRange {
		line := m.line
		running = running.Add(line.Debit).Sub(line.Credit)
		line.RunningBalance = running
		stmt.DebitTotal = stmt.DebitTotal.Add(line.Debit)
		stmt.CreditTotal = stmt.CreditTotal.Add(line.Credit)
		stmt.Lines = append(stmt.Lines, line)
	}
	stmt.ClosingBalance = stmt.OpeningBalance.Add(stmt.DebitTotal).Sub(stmt.CreditTotal)

	return stmt, recordWarnings(entity.ID, orders, payments), nil
}

func paymentDescription(p Payment) string {
	desc := fmt.Sprintf("Payment %s", p.ID)
	if p.Method != "" {
		desc += " (" + p.Method + ")"
	}
	if p.Note != "" {
		desc += ": " + p.Note
	}
	return desc
}

// CrossCheck verifies that a statement reconciles with the entity's balance.
// A mismatch means the two views were computed from different data.
func CrossCheck(stmt *Statement, summary LedgerSummary) error {
	if stmt.Entity.ID != summary.Entity.ID {
		return shared.NewDomainError(shared.CodeLedgerMismatch,
			fmt.Sprintf("statement for %s checked against summary for %s", stmt.Entity.ID, summary.Entity.ID))
	}
	total := stmt.ClosingBalance.Add(stmt.TrailingNet)
	if !total.Equal(summary.Balance) {
		return shared.NewDomainError(shared.CodeLedgerMismatch,
			fmt.Sprintf("statement for %s closes at %s but balance is %s", stmt.Entity.ID, total.String(), summary.Balance.String()))
	}
	return nil
}
