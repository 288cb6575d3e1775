package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, l, FromContext(WithTenantID(ctx, "t")), "tenant scope keeps the base logger")
}

func TestScopeIsCopiedOnWrite(t *testing.T) {
	parent := WithRequestID(context.Background(), "req-1")
	child := WithTenantID(parent, "tenant-1")

	assert.Equal(t, "req-1", RequestID(child))
	assert.Equal(t, "tenant-1", TenantID(child))
	assert.Equal(t, "", TenantID(parent))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestL_InjectsTraceRequestAndTenant(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ctx = WithContext(ctx, zap.New(core))
	ctx = WithRequestID(ctx, "req-9")
	ctx = WithTenantID(ctx, "tenant-2")

	L(ctx).With(zap.String("entity_id", "guest:An")).Warn("record skipped")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tenant-2", fields["tenant_id"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "guest:An", fields["entity_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestFor(t *testing.T) {
	t.Run("bare context returns the logger unchanged", func(t *testing.T) {
		base := zap.NewExample()
		assert.Same(t, base, For(context.Background(), base))
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			For(WithTenantID(context.Background(), "t"), nil).Info("ignored")
		})
	})
}
