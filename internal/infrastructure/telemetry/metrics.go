package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = time.Minute

// MetricsConfig configures OTLP metric export.
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
}

// MeterProvider owns the SDK meter provider. A disabled provider hands out
// meters from the global (no-op) provider.
type MeterProvider struct {
	sdk *sdkmetric.MeterProvider
	log *zap.Logger
}

// NewMeterProvider starts periodic OTLP export when metrics are enabled.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, log *zap.Logger) (*MeterProvider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	mp := &MeterProvider{log: log}
	if !cfg.Enabled {
		log.Info("Metrics export disabled")
		return mp, nil
	}

	reader, err := newPeriodicReader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	mp.sdk = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp.sdk)

	log.Info("Metrics export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", exportInterval(cfg)),
	)
	return mp, nil
}

func exportInterval(cfg MetricsConfig) time.Duration {
	if cfg.ExportInterval <= 0 {
		return defaultExportInterval
	}
	return cfg.ExportInterval
}

func newPeriodicReader(ctx context.Context, cfg MetricsConfig) (sdkmetric.Reader, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval(cfg))), nil
}

// Meter returns a named meter.
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp == nil || mp.sdk == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.sdk.Meter(name)
}

// IsEnabled reports whether metrics are exported.
func (mp *MeterProvider) IsEnabled() bool {
	return mp != nil && mp.sdk != nil
}

// Shutdown flushes the last collection and stops export.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if !mp.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}

// Instruments declares a group of instruments on one meter. Creation errors
// are collected and reported once by Err, so a metric set reads as a flat
// list of declarations.
type Instruments struct {
	meter metric.Meter
	errs  []error
}

// NewInstruments starts a group of instruments on meter.
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Err returns every instrument creation error joined.
func (in *Instruments) Err() error {
	return errors.Join(in.errs...)
}

func (in *Instruments) fail(name string, err error) {
	in.errs = append(in.errs, fmt.Errorf("instrument %s: %w", name, err))
}

// Counter declares a monotonic int64 counter.
func (in *Instruments) Counter(name, description, unit string) *Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
	}
	return &Counter{inst: c}
}

// UpDownCounter declares an int64 counter that can go down.
func (in *Instruments) UpDownCounter(name, description, unit string) *Counter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
	}
	return &Counter{inst: c}
}

// Histogram declares a float64 histogram with explicit bucket bounds.
func (in *Instruments) Histogram(name, description, unit string, bounds []float64) *Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := in.meter.Float64Histogram(name, opts...)
	if err != nil {
		in.fail(name, err)
	}
	return &Histogram{inst: h}
}

// Gauge declares a float64 gauge.
func (in *Instruments) Gauge(name, description, unit string) *Gauge {
	g, err := in.meter.Float64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.fail(name, err)
	}
	return &Gauge{inst: g}
}

type int64Adder interface {
	Add(ctx context.Context, incr int64, opts ...metric.AddOption)
}

// Counter adds int64 values. A zero Counter discards them.
type Counter struct {
	inst int64Adder
}

// Add adds n.
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	if c == nil || c.inst == nil {
		return
	}
	c.inst.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Inc adds one.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Histogram records float64 samples.
type Histogram struct {
	inst metric.Float64Histogram
}

func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	if h == nil || h.inst == nil {
		return
	}
	h.inst.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Since records the seconds elapsed since start.
func (h *Histogram) Since(ctx context.Context, start time.Time, attrs ...attribute.KeyValue) {
	h.Record(ctx, time.Since(start).Seconds(), attrs...)
}

// Seconds records d in seconds.
func (h *Histogram) Seconds(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Gauge records the latest float64 value.
type Gauge struct {
	inst metric.Float64Gauge
}

func (g *Gauge) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	if g == nil || g.inst == nil {
		return
	}
	g.inst.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Metric attribute keys.
var (
	AttrTenantID = attribute.Key("tenant_id")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrOperation   = attribute.Key("ledger.operation")
	AttrReason      = attribute.Key("ledger.warning_reason")
	AttrCacheResult = attribute.Key("ledger.cache_result")
	AttrBucket      = attribute.Key("ledger.aging_bucket")
	AttrFormat      = attribute.Key("ledger.export_format")
)

// Bucket bounds in seconds. Ledger computations run in memory over one
// tenant snapshot and are far faster than a full HTTP round trip.
var (
	HTTPDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	ComputeDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
	ResponseSizeBuckets    = []float64{256, 1 << 10, 16 << 10, 256 << 10, 1 << 20, 8 << 20}
)
