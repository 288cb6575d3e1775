package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// requestScope is the logging state a request carries through its context.
// Fields are copied on write so a derived context never mutates its parent.
type requestScope struct {
	base      *zap.Logger
	requestID string
	tenantID  string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) requestScope {
	if s, ok := ctx.Value(scopeKey{}).(requestScope); ok {
		return s
	}
	return requestScope{}
}

func withScope(ctx context.Context, update func(*requestScope)) context.Context {
	s := scopeOf(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithContext stores the base logger for the request
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return withScope(ctx, func(s *requestScope) { s.base = l })
}

// FromContext returns the base logger stored by WithContext, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l := scopeOf(ctx).base; l != nil {
		return l
	}
	return zap.NewNop()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withScope(ctx, func(s *requestScope) { s.requestID = requestID })
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return withScope(ctx, func(s *requestScope) { s.tenantID = tenantID })
}

func RequestID(ctx context.Context) string { return scopeOf(ctx).requestID }
func TenantID(ctx context.Context) string  { return scopeOf(ctx).tenantID }

// L returns the request logger: the stored base logger with the trace,
// request and tenant fields of ctx attached.
//
//	logger.L(ctx).Warn("record skipped", zap.String("record_id", id))
func L(ctx context.Context) *zap.Logger {
	return For(ctx, FromContext(ctx))
}

// For attaches the trace, request and tenant fields of ctx to l. Services
// holding their own logger use it instead of L.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	s := scopeOf(ctx)
	if s.requestID != "" {
		fields = append(fields, zap.String("request_id", s.requestID))
	}
	if s.tenantID != "" {
		fields = append(fields, zap.String("tenant_id", s.tenantID))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
