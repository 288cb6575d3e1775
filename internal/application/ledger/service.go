package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxLoggedWarnings caps the number of individual warning log lines per request
const DefaultMaxLoggedWarnings = 20

// LedgerService serves the ledger read models.
// Every read recomputes from a snapshot of raw records; only the snapshot may be cached.
type LedgerService struct {
	feed      ledger.TransactionFeed
	engine    *ledger.Engine
	cache     ledger.SnapshotCache
	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   *telemetry.LedgerMetrics

	snapshotTTL       time.Duration
	defaultFilter     ledger.StatusFilter
	maxLoggedWarnings int
	now               func() time.Time
}

// ServiceOption configures a LedgerService
type ServiceOption func(*LedgerService)

// WithSnapshotCache enables snapshot caching with the given TTL
func WithSnapshotCache(cache ledger.SnapshotCache, ttl time.Duration) ServiceOption {
	return func(s *LedgerService) {
		s.cache = cache
		if ttl > 0 {
			s.snapshotTTL = ttl
		}
	}
}

// WithEventPublisher sets the publisher used by RequestRefresh
func WithEventPublisher(publisher shared.EventPublisher) ServiceOption {
	return func(s *LedgerService) {
		s.publisher = publisher
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultStatusFilter sets the filter used when a query names none
func WithDefaultStatusFilter(raw string) ServiceOption {
	return func(s *LedgerService) {
		s.defaultFilter = ledger.ParseStatusFilter(raw)
	}
}

// WithMaxLoggedWarnings caps per-request warning logs
func WithMaxLoggedWarnings(n int) ServiceOption {
	return func(s *LedgerService) {
		if n >= 0 {
			s.maxLoggedWarnings = n
		}
	}
}

// WithClock overrides the clock used for default as-of dates
func WithClock(now func() time.Time) ServiceOption {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(feed ledger.TransactionFeed, engine *ledger.Engine, opts ...ServiceOption) *LedgerService {
	s := &LedgerService{
		feed:              feed,
		engine:            engine,
		logger:            zap.NewNop(),
		snapshotTTL:       ledger.DefaultSnapshotTTL,
		defaultFilter:     ledger.StatusFilterAll,
		maxLoggedWarnings: DefaultMaxLoggedWarnings,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLedgerMetrics sets the metrics recorder
func (s *LedgerService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// ListSummaries returns one page of per-entity summaries, sorted by balance
func (s *LedgerService) ListSummaries(ctx context.Context, tenantID uuid.UUID, query ListSummariesQuery) (*SummaryList, error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, "list_summaries")
	defer span.End()

	query.normalize()
	filter := s.defaultFilter
	if strings.TrimSpace(query.Status) != "" {
		filter = ledger.ParseStatusFilter(query.Status)
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrStatusFilter, string(filter),
	)

	var result *SummaryList
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationListSummaries, tenantID), func(c context.Context) {
		snap, err := s.loadSnapshot(c, tenantID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		start := time.Now()
		summaries, warnings := s.engine.Summaries(snap, filter)
		s.metrics.RecordComputation(c, tenantID, telemetry.OperationListSummaries, time.Since(start))
		s.reportWarnings(c, tenantID, telemetry.OperationListSummaries, warnings)

		matched := summaries
		if query.Search != "" {
			matched = make([]ledger.LedgerSummary, 0, len(summaries))
			for _, summary := range summaries {
				if matchesSearch(summary, query.Search) {
					matched = append(matched, summary)
				}
			}
		}

		items, totalPages := paginate(matched, query.Page, query.PageSize)
		result = &SummaryList{
			Items:      items,
			Status:     string(filter),
			Total:      int64(len(matched)),
			Page:       query.Page,
			PageSize:   query.PageSize,
			TotalPages: totalPages,
			Totals:     computeTotals(matched),
			Warnings:   nonNilWarnings(warnings),
		}
		telemetry.SetAttributes(span,
			telemetry.SpanAttrEntityCount, len(summaries),
			telemetry.SpanAttrWarningCount, len(warnings),
		)
	})
	return result, operationErr
}

// GetAgingReport classifies every debtor as of asOf, or now when asOf is nil
func (s *LedgerService) GetAgingReport(ctx context.Context, tenantID uuid.UUID, asOf *time.Time) (*AgingReportResult, error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, "aging_report")
	defer span.End()

	at := s.now()
	if asOf != nil {
		at = *asOf
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAsOf, at.Format(time.RFC3339),
	)

	var result *AgingReportResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationAgingReport, tenantID), func(c context.Context) {
		snap, err := s.loadSnapshot(c, tenantID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		start := time.Now()
		report, warnings := s.engine.Aging(snap, at)
		s.metrics.RecordComputation(c, tenantID, telemetry.OperationAgingReport, time.Since(start))
		s.reportWarnings(c, tenantID, telemetry.OperationAgingReport, warnings)
		for _, total := range report.Totals {
			s.metrics.RecordAgingOutstanding(c, tenantID, total.Bucket.String(), total.Outstanding)
		}

		if n := len(report.Unclassified); n > 0 {
			logger.For(c, s.logger).Warn("Debts excluded from aging buckets",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("unclassified", n),
			)
		}

		result = &AgingReportResult{AgingReport: report, Warnings: nonNilWarnings(warnings)}
		telemetry.SetAttributes(span,
			telemetry.SpanAttrEntityCount, len(report.Entries),
			telemetry.SpanAttrWarningCount, len(warnings),
		)
	})
	return result, operationErr
}

// GetStatement builds the statement of one entity for the calendar days [from, to].
// A nil from means "from the beginning"; a nil to means today.
func (s *LedgerService) GetStatement(ctx context.Context, tenantID uuid.UUID, entityID string, from, to *time.Time) (*StatementResult, error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, "statement")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrEntityID, entityID,
	)

	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		err := shared.NewDomainError(shared.CodeInvalidEntity, "Entity ID is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	end := s.now()
	if to != nil {
		end = *to
	}
	rng := ledger.StatementRange{Start: from, End: end}

	var result *StatementResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationStatement, tenantID), func(c context.Context) {
		snap, err := s.loadSnapshot(c, tenantID)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		start := time.Now()
		stmt, summary, warnings, err := s.engine.Statement(snap, ledger.EntityID(entityID), rng)
		s.metrics.RecordComputation(c, tenantID, telemetry.OperationStatement, time.Since(start))
		s.reportWarnings(c, tenantID, telemetry.OperationStatement, warnings)
		if err != nil {
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		if err := ledger.CrossCheck(stmt, summary); err != nil {
			logger.For(c, s.logger).Error("Statement does not reconcile with ledger",
				zap.String("tenant_id", tenantID.String()),
				zap.String("entity_id", entityID),
				zap.String("closing_balance", stmt.ClosingBalance.String()),
				zap.String("trailing_net", stmt.TrailingNet.String()),
				zap.String("balance", summary.Balance.String()),
			)
			telemetry.RecordError(span, err)
			operationErr = err
			return
		}

		result = &StatementResult{Statement: stmt, Summary: summary, Warnings: nonNilWarnings(warnings)}
		telemetry.SetAttributes(span, telemetry.SpanAttrLineCount, len(stmt.Lines))
	})
	return result, operationErr
}

// Invalidate drops the cached snapshot of a tenant
func (s *LedgerService) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	ctx, span := telemetry.StartLedgerSpan(ctx, "invalidate")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, tenantID); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	logger.For(ctx, s.logger).Debug("Ledger snapshot invalidated",
		zap.String("tenant_id", tenantID.String()),
	)
	return nil
}

// RequestRefresh announces that a tenant's records changed.
// Without an event publisher the local cache is invalidated directly.
func (s *LedgerService) RequestRefresh(ctx context.Context, tenantID uuid.UUID, source string) error {
	if s.publisher == nil {
		return s.Invalidate(ctx, tenantID)
	}
	if source == "" {
		source = "api"
	}
	event := ledger.NewRecordsChangedEvent(tenantID, source, "")
	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish records changed event: %w", err)
	}
	return nil
}

func (s *LedgerService) loadSnapshot(ctx context.Context, tenantID uuid.UUID) (*ledger.Snapshot, error) {
	log := logger.For(ctx, s.logger)

	if s.cache == nil {
		s.metrics.RecordCacheLookup(ctx, telemetry.CacheResultBypass)
		return s.loadFromFeed(ctx, tenantID)
	}

	cached, err := s.cache.Get(ctx, tenantID)
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup(ctx, telemetry.CacheResultError)
		log.Warn("Snapshot cache read failed, loading from feed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	case cached != nil:
		s.metrics.RecordCacheLookup(ctx, telemetry.CacheResultHit)
		return cached, nil
	default:
		s.metrics.RecordCacheLookup(ctx, telemetry.CacheResultMiss)
	}

	snap, loadErr := s.loadFromFeed(ctx, tenantID)
	if loadErr != nil {
		return nil, loadErr
	}
	if err == nil {
		if setErr := s.cache.Set(ctx, snap, s.snapshotTTL); setErr != nil {
			log.Warn("Failed to cache ledger snapshot",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(setErr),
			)
		}
	}
	return snap, nil
}

func (s *LedgerService) loadFromFeed(ctx context.Context, tenantID uuid.UUID) (*ledger.Snapshot, error) {
	snap, err := s.feed.LoadSnapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger snapshot: %w", err)
	}
	if snap == nil {
		snap = &ledger.Snapshot{TenantID: tenantID, LoadedAt: s.now()}
	}
	s.metrics.RecordSnapshotSize(ctx, tenantID, snap.Size())
	return snap, nil
}

func (s *LedgerService) reportWarnings(ctx context.Context, tenantID uuid.UUID, operation string, warnings []ledger.DataQualityWarning) {
	if len(warnings) == 0 {
		return
	}

	byReason := make(map[string]int)
	for _, w := range warnings {
		byReason[string(w.Reason)]++
	}
	s.metrics.RecordWarnings(ctx, tenantID, byReason)

	log := logger.For(ctx, s.logger).With(
		zap.String("tenant_id", tenantID.String()),
		zap.String("operation", operation),
	)
	for i, w := range warnings {
		if i >= s.maxLoggedWarnings {
			log.Warn("Further data quality warnings suppressed",
				zap.Int("total", len(warnings)),
				zap.Int("logged", s.maxLoggedWarnings),
			)
			break
		}
		log.Warn("Ledger data quality warning",
			zap.String("record_kind", string(w.RecordKind)),
			zap.String("record_id", w.RecordID),
			zap.String("entity_id", string(w.EntityID)),
			zap.String("reason", string(w.Reason)),
			zap.String("detail", w.Message),
		)
	}
}

func nonNilWarnings(w []ledger.DataQualityWarning) []ledger.DataQualityWarning {
	if w == nil {
		return []ledger.DataQualityWarning{}
	}
	return w
}
