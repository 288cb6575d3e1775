package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))
	assert.False(t, lp.Core(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base))

	var nilProvider *LoggerProvider
	assert.False(t, nilProvider.IsEnabled())
}

func TestLoggerProvider_CoreLevel(t *testing.T) {
	lp := &LoggerProvider{sdk: sdklog.NewLoggerProvider(), scope: "ledger-service"}
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core := lp.Core(zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))

	bridged := lp.Bridge(zap.NewExample())
	assert.NotNil(t, bridged)
	assert.NotPanics(t, func() { bridged.Warn("exported", zap.String("tenant_id", "t-1")) })
}
