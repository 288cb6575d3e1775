package middleware

import (
	"context"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are left unlabelled, together with everything below them.
	SkipPaths []string
}

// DefaultProfilingConfig skips health and scrape endpoints
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/healthz", "/metrics"},
	}
}

// Profiling runs the rest of the chain under pprof labels for method,
// route and tenant, so Pyroscope can slice CPU time per ledger endpoint.
// It runs after the tenant middleware.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	return func(c *gin.Context) {
		if underAny(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), requestLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func requestLabels(c *gin.Context) map[string]string {
	labels := map[string]string{
		telemetry.ProfilingLabelMethod: c.Request.Method,
		telemetry.ProfilingLabelRoute:  routePattern(c),
	}
	if tenant := GetTenantID(c); tenant != "" {
		labels[telemetry.ProfilingLabelTenantID] = tenant
	}
	return labels
}
