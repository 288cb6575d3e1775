package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of ledger spans
const TracerName = "github.com/erp/ledger"

// Span attribute keys for ledger spans. Metric attributes live in metrics.go.
const (
	SpanAttrTenantID      = "tenant_id"
	SpanAttrEntityID      = "entity_id"
	SpanAttrStatusFilter  = "status_filter"
	SpanAttrEntityCount   = "entity_count"
	SpanAttrWarningCount  = "warning_count"
	SpanAttrSnapshotSize  = "snapshot_size"
	SpanAttrCacheResult   = "cache_result"
	SpanAttrLineCount     = "line_count"
	SpanAttrAsOf          = "as_of"
	SpanAttrExportFormat  = "export_format"
	SpanAttrChangeChannel = "change_channel"
)

// StartSpan starts an internal span on the global tracer. kv is a flat
// list of attribute key/value pairs, as accepted by SetAttributes.
//
//	ctx, span := telemetry.StartSpan(ctx, "ledger.load_snapshot", telemetry.SpanAttrTenantID, id)
//	defer span.End()
func StartSpan(ctx context.Context, name string, kv ...any) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if attrs := pairs(kv); len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartLedgerSpan starts the span of one ledger operation, named
// "ledger.<operation>".
func StartLedgerSpan(ctx context.Context, operation string, kv ...any) (context.Context, trace.Span) {
	return StartSpan(ctx, "ledger."+operation, kv...)
}

// SetAttributes adds key/value pairs to span. Pairs whose key is not a
// string are dropped; an attribute.KeyValue may also be passed on its own.
func SetAttributes(span trace.Span, kv ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(pairs(kv)...)
}

// AddEvent adds a named event carrying key/value pairs.
func AddEvent(span trace.Span, name string, kv ...any) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairs(kv)...))
}

// RecordError records err and marks span failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace ID of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func pairs(kv []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i < len(kv); i++ {
		if a, ok := kv[i].(attribute.KeyValue); ok {
			attrs = append(attrs, a)
			continue
		}
		if i+1 >= len(kv) {
			break
		}
		if key, ok := kv[i].(string); ok {
			attrs = append(attrs, attr(key, kv[i+1]))
		}
		i++
	}
	return attrs
}

func attr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
