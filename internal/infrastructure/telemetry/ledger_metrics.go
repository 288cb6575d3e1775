package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Operation names used as metric and profiling labels
const (
	OperationListSummaries = "list_summaries"
	OperationAgingReport   = "aging_report"
	OperationStatement     = "statement"
	OperationInvalidate    = "invalidate"
)

// Cache lookup outcomes
const (
	CacheResultHit    = "hit"
	CacheResultMiss   = "miss"
	CacheResultError  = "error"
	CacheResultBypass = "bypass"
)

// ErrMeterNil is returned by NewLedgerMetrics without a meter.
var ErrMeterNil = errors.New("ledger metrics: meter is nil")

// LedgerMetrics records how often ledger views are computed, how long the
// computation takes and how much bad data the engine had to skip.
// All methods are safe on a nil receiver.
type LedgerMetrics struct {
	logger *zap.Logger

	computations *Counter
	warnings     *Counter
	cacheLookups *Counter
	exports      *Counter
	computeTime  *Histogram
	snapshotSize *Gauge
	outstanding  *Gauge
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics declares the ledger instruments on the configured meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	in := NewInstruments(cfg.Meter)
	lm := &LedgerMetrics{
		logger: logger,
		computations: in.Counter("ledger_computations_total",
			"Ledger view computations", "{computation}"),
		warnings: in.Counter("ledger_data_quality_warnings_total",
			"Records skipped or flagged while computing ledger views", "{warning}"),
		cacheLookups: in.Counter("ledger_snapshot_cache_lookups_total",
			"Snapshot cache lookups by outcome", "{lookup}"),
		exports: in.Counter("ledger_statement_exports_total",
			"Statement documents rendered by format", "{document}"),
		computeTime: in.Histogram("ledger_compute_duration_seconds",
			"Time spent loading records and computing a ledger view", "s", ComputeDurationBuckets),
		snapshotSize: in.Gauge("ledger_snapshot_records",
			"Records in the last loaded tenant snapshot", "{record}"),
		outstanding: in.Gauge("ledger_aging_outstanding",
			"Outstanding balance per aging bucket at the last aging computation", "{currency}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return lm, nil
}

func tenantAttr(tenantID uuid.UUID) attribute.KeyValue {
	return AttrTenantID.String(tenantID.String())
}

// RecordComputation records one computed view and its duration.
func (lm *LedgerMetrics) RecordComputation(ctx context.Context, tenantID uuid.UUID, operation string, d time.Duration) {
	if lm == nil {
		return
	}
	lm.computations.Inc(ctx, tenantAttr(tenantID), AttrOperation.String(operation))
	lm.computeTime.Seconds(ctx, d, AttrOperation.String(operation))
}

// RecordWarnings counts data-quality warnings by reason.
func (lm *LedgerMetrics) RecordWarnings(ctx context.Context, tenantID uuid.UUID, byReason map[string]int) {
	if lm == nil {
		return
	}
	for reason, n := range byReason {
		lm.warnings.Add(ctx, int64(n), tenantAttr(tenantID), AttrReason.String(reason))
	}
}

func (lm *LedgerMetrics) RecordCacheLookup(ctx context.Context, result string) {
	if lm == nil {
		return
	}
	lm.cacheLookups.Inc(ctx, AttrCacheResult.String(result))
}

// RecordSnapshotSize records the record count of a freshly loaded snapshot.
func (lm *LedgerMetrics) RecordSnapshotSize(ctx context.Context, tenantID uuid.UUID, records int) {
	if lm == nil {
		return
	}
	lm.snapshotSize.Record(ctx, float64(records), tenantAttr(tenantID))
}

// RecordAgingOutstanding records the outstanding balance of one bucket.
// The float conversion is for reporting only; ledger arithmetic stays decimal.
func (lm *LedgerMetrics) RecordAgingOutstanding(ctx context.Context, tenantID uuid.UUID, bucket string, outstanding decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.outstanding.Record(ctx, outstanding.InexactFloat64(), tenantAttr(tenantID), AttrBucket.String(bucket))
}

func (lm *LedgerMetrics) RecordExport(ctx context.Context, format string) {
	if lm == nil {
		return
	}
	lm.exports.Inc(ctx, AttrFormat.String(format))
}
