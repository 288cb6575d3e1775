package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 100000
)

// ListSummariesQuery represents the filter and pagination of a summary listing
type ListSummariesQuery struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1,max=100000"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (q *ListSummariesQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > maxPage {
		q.Page = maxPage
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
}

// SummaryTotals aggregates the summaries matching a query, across all pages
type SummaryTotals struct {
	TotalPurchased decimal.Decimal `json:"total_purchased"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalDebt      decimal.Decimal `json:"total_debt"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	DebtorCount    int             `json:"debtor_count"`
}

// SummaryList represents one page of ledger summaries
type SummaryList struct {
	Items      []ledger.LedgerSummary      `json:"items"`
	Status     string                      `json:"status"`
	Total      int64                       `json:"total"`
	Page       int                         `json:"page"`
	PageSize   int                         `json:"page_size"`
	TotalPages int                         `json:"total_pages"`
	Totals     SummaryTotals               `json:"totals"`
	Warnings   []ledger.DataQualityWarning `json:"warnings"`
}

// AgingReportResult is the aging report plus the warnings raised while building it
type AgingReportResult struct {
	*ledger.AgingReport
	Warnings []ledger.DataQualityWarning `json:"warnings"`
}

// StatementResult carries a statement and the unfiltered summary it was checked against
type StatementResult struct {
	Statement *ledger.Statement           `json:"statement"`
	Summary   ledger.LedgerSummary        `json:"summary"`
	Warnings  []ledger.DataQualityWarning `json:"warnings"`
}

func computeTotals(summaries []ledger.LedgerSummary) SummaryTotals {
	totals := SummaryTotals{
		TotalPurchased: decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalDebt:      decimal.Zero,
		TotalCredit:    decimal.Zero,
	}
	for _, s := range summaries {
		totals.TotalPurchased = totals.TotalPurchased.Add(s.TotalPurchased)
		totals.TotalPaid = totals.TotalPaid.Add(s.TotalPaid)
		switch {
		case s.IsDebtor():
			totals.TotalDebt = totals.TotalDebt.Add(s.Balance)
			totals.DebtorCount++
		case s.IsOverpaid():
			totals.TotalCredit = totals.TotalCredit.Add(s.Balance.Neg())
		}
	}
	return totals
}

// matchesSearch does a case-insensitive substring match on name and phone
func matchesSearch(s ledger.LedgerSummary, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(ledger.NormalizeGuestName(search))
	if strings.Contains(strings.ToLower(ledger.NormalizeGuestName(s.Entity.Name)), needle) {
		return true
	}
	return s.Entity.Phone != "" && strings.Contains(s.Entity.Phone, search)
}

func paginate(items []ledger.LedgerSummary, page, pageSize int) ([]ledger.LedgerSummary, int) {
	total := len(items)
	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}
	// compare pages before multiplying so a huge page cannot overflow
	if page < 1 || page-1 >= totalPages {
		return []ledger.LedgerSummary{}, totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], totalPages
}
