package middleware

import (
	"time"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

type httpInstruments struct {
	requests *telemetry.Counter
	inFlight *telemetry.Counter
	latency  *telemetry.Histogram
	size     *telemetry.Histogram
}

func declareHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	in := telemetry.NewInstruments(meter)
	hi := &httpInstruments{
		requests: in.Counter("http_server_request_total", "HTTP requests served", "{request}"),
		inFlight: in.UpDownCounter("http_server_active_requests", "HTTP requests in flight", "{request}"),
		latency: in.Histogram("http_server_request_duration_seconds",
			"HTTP request latency", "s", telemetry.HTTPDurationBuckets),
		size: in.Histogram("http_server_response_size_bytes",
			"HTTP response body size; statement exports dominate the upper buckets", "By", telemetry.ResponseSizeBuckets),
	}
	return hi, in.Err()
}

func passThrough(c *gin.Context) { c.Next() }

// HTTPMetrics records request count, latency, response size and in-flight
// requests through the OTel meter provider. It is a no-op when metrics
// export is off.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"))
}

// HTTPMetricsWithMeter is HTTPMetrics on an explicit meter.
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	hi, err := declareHTTPInstruments(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		hi.inFlight.Inc(ctx)
		defer hi.inFlight.Add(ctx, -1)

		c.Next()

		route := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(routePattern(c)),
		}
		counted := append(route[:len(route):len(route)], telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		if tenant := GetTenantID(c); tenant != "" {
			counted = append(counted, telemetry.AttrTenantID.String(tenant))
		}

		hi.requests.Inc(ctx, counted...)
		hi.latency.Since(ctx, start, route...)
		if n := c.Writer.Size(); n > 0 {
			hi.size.Record(ctx, float64(n), route...)
		}
	}
}

// routePattern returns the matched route, never the raw path
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// HTTPMetricsStatusGroup maps a status code to its class ("2xx" .. "5xx").
func HTTPMetricsStatusGroup(statusCode int) string {
	if statusCode < 200 || statusCode > 599 {
		return "other"
	}
	return string(rune('0'+statusCode/100)) + "xx"
}
