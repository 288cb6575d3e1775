package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestLedgerMetrics(t *testing.T) (*LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	lm, err := NewLedgerMetrics(LedgerMetricsConfig{
		Meter:  provider.Meter("test"),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return lm, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key attribute.Key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(key); found && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := NewLedgerMetrics(LedgerMetricsConfig{})
	assert.Nil(t, lm)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestLedgerMetrics_RecordComputation(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	tenantID := uuid.New()
	ctx := context.Background()

	lm.RecordComputation(ctx, tenantID, OperationListSummaries, 3*time.Millisecond)
	lm.RecordComputation(ctx, tenantID, OperationListSummaries, 5*time.Millisecond)
	lm.RecordComputation(ctx, tenantID, OperationStatement, time.Millisecond)

	metrics := collect(t, reader)
	total := metrics["ledger_computations_total"]
	assert.Equal(t, int64(2), sumFor(t, total, AttrOperation, OperationListSummaries))
	assert.Equal(t, int64(1), sumFor(t, total, AttrOperation, OperationStatement))

	hist, ok := metrics["ledger_compute_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestLedgerMetrics_RecordWarningsAndCache(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	lm.RecordWarnings(ctx, uuid.New(), map[string]int{"MISSING_AMOUNT": 2, "FOREIGN_TENANT": 1})
	lm.RecordCacheLookup(ctx, CacheResultHit)
	lm.RecordCacheLookup(ctx, CacheResultMiss)
	lm.RecordCacheLookup(ctx, CacheResultHit)
	lm.RecordExport(ctx, "pdf")

	metrics := collect(t, reader)
	warnings := metrics["ledger_data_quality_warnings_total"]
	assert.Equal(t, int64(2), sumFor(t, warnings, AttrReason, "MISSING_AMOUNT"))
	assert.Equal(t, int64(1), sumFor(t, warnings, AttrReason, "FOREIGN_TENANT"))

	lookups := metrics["ledger_snapshot_cache_lookups_total"]
	assert.Equal(t, int64(2), sumFor(t, lookups, AttrCacheResult, CacheResultHit))
	assert.Equal(t, int64(1), sumFor(t, lookups, AttrCacheResult, CacheResultMiss))

	assert.Equal(t, int64(1), sumFor(t, metrics["ledger_statement_exports_total"], AttrFormat, "pdf"))
}

func TestLedgerMetrics_Gauges(t *testing.T) {
	lm, reader := newTestLedgerMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()

	lm.RecordSnapshotSize(ctx, tenantID, 120)
	lm.RecordAgingOutstanding(ctx, tenantID, ">=90d", decimal.RequireFromString("1500.5"))

	metrics := collect(t, reader)

	size, ok := metrics["ledger_snapshot_records"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, size.DataPoints, 1)
	assert.Equal(t, float64(120), size.DataPoints[0].Value)

	outstanding, ok := metrics["ledger_aging_outstanding"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, outstanding.DataPoints, 1)
	assert.InDelta(t, 1500.5, outstanding.DataPoints[0].Value, 0.0001)
	bucket, _ := outstanding.DataPoints[0].Attributes.Value(AttrBucket)
	assert.Equal(t, ">=90d", bucket.AsString())
}

func TestLedgerMetrics_NilReceiver(t *testing.T) {
	var lm *LedgerMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		lm.RecordComputation(ctx, uuid.New(), OperationAgingReport, time.Second)
		lm.RecordWarnings(ctx, uuid.New(), map[string]int{"X": 1})
		lm.RecordCacheLookup(ctx, CacheResultError)
		lm.RecordSnapshotSize(ctx, uuid.New(), 1)
		lm.RecordAgingOutstanding(ctx, uuid.New(), "<30d", decimal.Zero)
		lm.RecordExport(ctx, "xlsx")
	})
}
