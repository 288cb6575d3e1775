package ledger

import (
	"math"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := make([]ledger.LedgerSummary, 5)
	for i := range items {
		items[i].Entity.ID = ledger.EntityID(string(rune('a' + i)))
	}

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantLen   int
		wantFirst ledger.EntityID
	}{
		{"first page", 1, 2, 2, "a"},
		{"last partial page", 3, 2, 1, "e"},
		{"past the end", 4, 2, 0, ""},
		{"huge page", math.MaxInt, 20, 0, ""},
		{"huge page small size", math.MaxInt, 1, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page []ledger.LedgerSummary
			var totalPages int
			assert.NotPanics(t, func() {
				page, totalPages = paginate(items, tt.page, tt.pageSize)
			})
			assert.Len(t, page, tt.wantLen)
			assert.Equal(t, (len(items)+tt.pageSize-1)/tt.pageSize, totalPages)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, page[0].Entity.ID)
			}
		})
	}
}

func TestListSummariesQuery_Normalize(t *testing.T) {
	q := ListSummariesQuery{Page: math.MaxInt, PageSize: 1000, Search: "  an "}
	q.normalize()
	assert.Equal(t, maxPage, q.Page)
	assert.Equal(t, maxPageSize, q.PageSize)
	assert.Equal(t, "an", q.Search)

	q = ListSummariesQuery{}
	q.normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, defaultPageSize, q.PageSize)
}
