package router

import (
	"fmt"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig carries everything the HTTP engine is assembled from
type EngineConfig struct {
	Logger        *zap.Logger
	HTTP          config.HTTPConfig
	ServiceName   string
	Tracing       bool
	Profiling     bool
	MeterProvider *telemetry.MeterProvider
	Prometheus    *middleware.PrometheusMetrics
	BodyLimit     int64
}

// NewEngine builds the gin engine: global middleware, health endpoints,
// the Prometheus scrape endpoint and the versioned API routes.
func NewEngine(cfg EngineConfig, health *handler.HealthHandler, registrars ...RouteRegistrar) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Logger = log

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = cfg.Profiling

	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = middleware.DefaultBodyLimit
	}

	// Order matters: the request ID feeds the logger, the tenant feeds
	// span attributes and profiling labels.
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsCfg),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.SpanStatus(),
		middleware.TenantMiddlewareWithConfig(tenantCfg),
		middleware.SpanAttributes(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{MeterProvider: cfg.MeterProvider, Enabled: cfg.MeterProvider != nil}),
		cfg.Prometheus.Middleware(),
		middleware.Profiling(profilingCfg),
		middleware.BodyLimit(bodyLimit),
	)

	if health != nil {
		engine.GET("/health", health.Health)
		engine.GET("/healthz", health.Live)
	}
	if cfg.Prometheus != nil {
		engine.GET("/metrics", cfg.Prometheus.Handler())
	}

	r := NewRouter(engine)
	for _, registrar := range registrars {
		r.Register(registrar)
	}
	r.Setup()

	return engine, nil
}
