package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/export"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Customer Ledger API
//	@version		1.0
//	@description	Customer balances, debt aging and statements computed from orders and payments

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry: traces, metrics, logs and profiles
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = lp.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileAlloc:    true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled && cfg.Telemetry.ProfilingSpanProfiles {
		if err := tp.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles not enabled", zap.Error(err))
		}
	}

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.Ledger.Timezone),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// Database
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.DBName = cfg.Database.DBName
	var gormOpts []logger.GormLoggerOption
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		gormOpts = append(gormOpts, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(dbTracing, log)),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Snapshot cache
	bundle, err := cache.NewSnapshotCacheFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create snapshot cache", zap.Error(err))
	}
	if bundle.Tiered != nil {
		go func() {
			if err := bundle.Tiered.StartInvalidationSubscription(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Snapshot invalidation subscription stopped", zap.Error(err))
			}
		}()
	}

	// Ledger engine and service
	cal, err := ledger.LoadCalendar(cfg.Ledger.Timezone)
	if err != nil {
		log.Fatal("Invalid ledger timezone", zap.Error(err))
	}
	engine := ledger.NewEngine(
		ledger.NewNameKeyedResolver(ledger.WithGuestPlaceholder(cfg.Ledger.GuestPlaceholder)),
		cal,
	)

	eventBus := event.NewInMemoryEventBus(log)

	serviceOpts := []ledgerapp.ServiceOption{
		ledgerapp.WithEventPublisher(eventBus),
		ledgerapp.WithLogger(log),
		ledgerapp.WithDefaultStatusFilter(cfg.Ledger.DefaultStatusFilter),
		ledgerapp.WithMaxLoggedWarnings(cfg.Ledger.MaxLoggedWarnings),
	}
	if bundle.Cache != nil {
		serviceOpts = append(serviceOpts, ledgerapp.WithSnapshotCache(bundle.Cache, cfg.Cache.SnapshotTTL))
	}
	ledgerService := ledgerapp.NewLedgerService(persistence.NewGormTransactionFeed(db.DB), engine, serviceOpts...)

	var ledgerMetrics *telemetry.LedgerMetrics
	if mp.IsEnabled() {
		ledgerMetrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:  mp.Meter("ledger"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Ledger metrics disabled", zap.Error(err))
		}
		ledgerService.SetLedgerMetrics(ledgerMetrics)
	}

	eventBus.Subscribe(ledgerapp.NewCacheInvalidationHandler(ledgerService, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	listenerDone := make(chan struct{})
	if cfg.Ledger.ChangeListenerEnabled {
		listener := persistence.NewChangeListener(cfg.Database.DSN(), eventBus,
			persistence.WithChannel(cfg.Ledger.ChangeChannel),
			persistence.WithListenerLogger(log),
		)
		go func() {
			defer close(listenerDone)
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Change listener stopped", zap.Error(err))
			}
		}()
		log.Info("Listening for record changes", zap.String("channel", listener.Channel()))
	} else {
		close(listenerDone)
	}

	// HTTP
	ledgerHandler := handler.NewLedgerHandler(ledgerService, cal)
	ledgerHandler.SetLedgerMetrics(ledgerMetrics)
	if cfg.Ledger.StatementFontDir != "" {
		ledgerHandler.SetPDFOptions(export.WithUTF8Font(cfg.Ledger.StatementFontDir, cfg.Ledger.StatementFontFile))
	}

	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Version).
		AddCheck("database", db.Ping).
		AddCheck("cache", bundle.Ping)

	prom, err := middleware.NewPrometheusMetrics("ledger")
	if err != nil {
		log.Fatal("Failed to register Prometheus collectors", zap.Error(err))
	}
	if poolStats, err := db.StatsCollector(cfg.Database.DBName); err != nil {
		log.Warn("Connection pool metrics disabled", zap.Error(err))
	} else if err := prom.Registry().Register(poolStats); err != nil {
		log.Warn("Connection pool metrics disabled", zap.Error(err))
	}

	httpEngine, err := router.NewEngine(router.EngineConfig{
		Logger:        log,
		HTTP:          cfg.HTTP,
		ServiceName:   cfg.Telemetry.ServiceName,
		Tracing:       tp.IsEnabled(),
		Profiling:     cfg.Telemetry.ProfilingEnabled,
		MeterProvider: mp,
		Prometheus:    prom,
	}, healthHandler, router.NewLedgerRoutes(ledgerHandler))
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	stop()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	<-listenerDone
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := bundle.Close(); err != nil {
		log.Error("Error closing snapshot cache", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
