package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/ledger/internal/application/ledger"
	domain "github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/export"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const queryDateLayout = "2006-01-02"

// LedgerQueries is the part of the ledger service the HTTP layer depends on
type LedgerQueries interface {
	ListSummaries(ctx context.Context, tenantID uuid.UUID, query ledger.ListSummariesQuery) (*ledger.SummaryList, error)
	GetAgingReport(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (*ledger.AgingReportResult, error)
	GetStatement(ctx context.Context, tenantID uuid.UUID, entityID string, from, to *time.Time) (*ledger.StatementResult, error)
	RequestRefresh(ctx context.Context, tenantID uuid.UUID, source string) error
}

// LedgerHandler serves summaries, aging reports and statements
type LedgerHandler struct {
	BaseHandler
	service LedgerQueries
	cal     domain.Calendar
	metrics *telemetry.LedgerMetrics
	pdfOpts []export.PDFOption
}

// NewLedgerHandler creates a LedgerHandler. Query dates are read as
// calendar days in the location of cal.
func NewLedgerHandler(service LedgerQueries, cal domain.Calendar) *LedgerHandler {
	return &LedgerHandler{service: service, cal: cal}
}

// SetLedgerMetrics sets the instruments used to count statement exports
func (h *LedgerHandler) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	h.metrics = m
}

// SetPDFOptions sets the options used when rendering PDF statements
func (h *LedgerHandler) SetPDFOptions(opts ...export.PDFOption) {
	h.pdfOpts = opts
}

// AgingQuery holds the query parameters of the aging report
type AgingQuery struct {
	AsOf string `form:"as_of"`
}

// StatementQuery holds the query parameters of a statement request
type StatementQuery struct {
	EntityID string `form:"entity_id" binding:"required"`
	From     string `form:"from"`
	To       string `form:"to"`
	Format   string `form:"format"`
}

// RefreshRequest is the optional body of a refresh webhook
type RefreshRequest struct {
	Source string `json:"source" binding:"omitempty,max=64"`
}

// RefreshResponse acknowledges a refresh request
type RefreshResponse struct {
	TenantID string `json:"tenant_id"`
	Source   string `json:"source"`
}

// ListSummaries godoc
// @ID           listLedgerSummaries
// @Summary      List ledger summaries
// @Description  Balances of every billable entity, filtered by status and search text
// @Tags         ledger
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        status query string false "Order status counted in total_purchased (ALL, confirmed, draft, cancelled...); balances ignore it" default(ALL)
// @Param        search query string false "Name or phone substring"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} PagedResponse[ledger.SummaryList]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /ledger/summaries [get]
func (h *LedgerHandler) ListSummaries(c *gin.Context) {
	tenantID, err := tenantFrom(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var query ledger.ListSummariesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	list, err := h.service.ListSummaries(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, list, list.Total, list.Page, list.PageSize)
}

// GetAgingReport godoc
// @ID           getLedgerAgingReport
// @Summary      Get the debt aging report
// @Description  Classifies every debtor into an age bucket by the date of its oldest unpaid order
// @Tags         ledger
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        as_of query string false "Report date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} APIResponse[ledger.AgingReportResult]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /ledger/aging [get]
func (h *LedgerHandler) GetAgingReport(c *gin.Context) {
	tenantID, err := tenantFrom(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var query AgingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	asOf, ok := h.parseDate(c, "as_of", query.AsOf)
	if !ok {
		return
	}

	report, err := h.service.GetAgingReport(c.Request.Context(), tenantID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// GetStatement godoc
// @ID           getLedgerStatement
// @Summary      Get an entity statement
// @Description  Opening balance, dated lines with running balance and closing balance for a day range
// @Tags         ledger
// @Produce      json
// @Produce      application/pdf
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        entity_id query string true "Billable entity ID (customer UUID or guest:<name>)"
// @Param        from query string false "First day (YYYY-MM-DD), open when omitted"
// @Param        to query string false "Last day (YYYY-MM-DD), defaults to today"
// @Param        format query string false "Output format" Enums(json, pdf, xlsx)
// @Success      200 {object} APIResponse[ledger.StatementResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /ledger/statement [get]
func (h *LedgerHandler) GetStatement(c *gin.Context) {
	tenantID, err := tenantFrom(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var query StatementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	format, err := export.ParseFormat(query.Format)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "format", Message: err.Error()}})
		return
	}
	from, ok := h.parseDate(c, "from", query.From)
	if !ok {
		return
	}
	to, ok := h.parseDate(c, "to", query.To)
	if !ok {
		return
	}

	result, err := h.service.GetStatement(c.Request.Context(), tenantID, query.EntityID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if format == export.FormatJSON {
		h.Success(c, result)
		return
	}

	data, err := export.Render(result.Statement, format, h.pdfOpts...)
	if err != nil {
		logger.GinLogger(c).Error("Failed to render statement",
			zap.String("entity_id", query.EntityID),
			zap.String("format", string(format)),
			zap.Error(err),
		)
		h.InternalError(c, "Failed to render statement")
		return
	}
	h.metrics.RecordExport(c.Request.Context(), string(format))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName(result.Statement)))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// RequestRefresh godoc
// @ID           refreshLedger
// @Summary      Announce changed records
// @Description  Drops the tenant's cached ledger inputs so the next read recomputes from the record store
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body RefreshRequest false "Change source"
// @Success      202 {object} APIResponse[RefreshResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /ledger/refresh [post]
func (h *LedgerHandler) RequestRefresh(c *gin.Context) {
	tenantID, err := tenantFrom(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}

	if err := h.service.RequestRefresh(c.Request.Context(), tenantID, source); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, RefreshResponse{TenantID: tenantID.String(), Source: source})
}

// parseDate reads an optional YYYY-MM-DD query value as the start of that
// day in the ledger calendar. It writes the error response itself.
func (h *LedgerHandler) parseDate(c *gin.Context, field, raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(queryDateLayout, raw, h.cal.Location())
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat,
			fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
		return nil, false
	}
	return &t, true
}
