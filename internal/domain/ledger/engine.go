package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// Engine bundles a resolver and a calendar and runs every computation on a
// tenant-scoped copy of a snapshot.
type Engine struct {
	resolver EntityResolver
	calendar Calendar
}

// NewEngine creates a new Engine
func NewEngine(resolver EntityResolver, calendar Calendar) *Engine {
	if resolver == nil {
		resolver = NewNameKeyedResolver()
	}
	return &Engine{resolver: resolver, calendar: calendar}
}

// Calendar returns the business calendar
func (e *Engine) Calendar() Calendar {
	return e.calendar
}

func (e *Engine) prepare(snap *Snapshot) (*Snapshot, *Resolution, []DataQualityWarning) {
	scoped, warnings := snap.Scoped()
	res := e.resolver.Resolve(scoped.Orders, scoped.Payments, scoped.Customers)
	return scoped, res, warnings
}

// Summaries returns the sorted ledger summaries of every entity
func (e *Engine) Summaries(snap *Snapshot, filter StatusFilter) ([]LedgerSummary, []DataQualityWarning) {
	scoped, res, warnings := e.prepare(snap)
	summaries, w := AggregateAll(res, scoped.Orders, scoped.Payments, filter)
	return summaries, append(warnings, w...)
}

// Aging returns the debt aging report as of the given instant
func (e *Engine) Aging(snap *Snapshot, asOf time.Time) (*AgingReport, []DataQualityWarning) {
	scoped, res, warnings := e.prepare(snap)
	report, w := BuildAgingReport(res, scoped.Orders, scoped.Payments, asOf, e.calendar)
	return report, append(warnings, w...)
}

// Statement returns one entity's statement together with its unfiltered summary
func (e *Engine) Statement(snap *Snapshot, id EntityID, rng StatementRange) (*Statement, LedgerSummary, []DataQualityWarning, error) {
	scoped, res, warnings := e.prepare(snap)
	entity, ok := res.Lookup(id)
	if !ok {
		return nil, LedgerSummary{}, warnings, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("billable entity %s not found", id))
	}

	own, paid := res.Partition(id, scoped.Orders, scoped.Payments)
	stmt, w, err := buildStatement(entity, own, paid, rng, e.calendar)
	if err != nil {
		return nil, LedgerSummary{}, warnings, err
	}
	summary, _ := summarize(entity, own, paid, StatusFilterAll)
	return stmt, summary, append(warnings, w...), nil
}
