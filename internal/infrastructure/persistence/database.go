// Package persistence reads tenant orders and payments through GORM and
// listens for record changes on postgres.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is an open GORM connection and its pool
type Database struct {
	DB     *gorm.DB
	Driver string
}

type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger  logger.Interface
	tracing *telemetry.DBTracingPlugin
}

// WithGormLogger replaces the default silent GORM logger
func WithGormLogger(l logger.Interface) DatabaseOption {
	return func(o *databaseOptions) { o.logger = l }
}

// WithTracing registers the query tracing plugin on the connection
func WithTracing(plugin *telemetry.DBTracingPlugin) DatabaseOption {
	return func(o *databaseOptions) { o.tracing = plugin }
}

// dialect opens a driver; prepared statements are only worth it on postgres
type dialect struct {
	open    func(cfg *config.DatabaseConfig) gorm.Dialector
	prepare bool
}

var dialects = map[string]dialect{
	"postgres": {open: func(cfg *config.DatabaseConfig) gorm.Dialector { return postgres.Open(cfg.DSN()) }, prepare: true},
	"sqlite":   {open: func(cfg *config.DatabaseConfig) gorm.Dialector { return sqlite.Open(cfg.SQLitePath) }},
}

// NewDatabase connects, sizes the pool and pings. An empty driver means postgres.
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	o := &databaseOptions{logger: logger.Default.LogMode(logger.Silent)}
	for _, opt := range opts {
		opt(o)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(d.open(cfg), &gorm.Config{
		Logger:                 o.logger,
		SkipDefaultTransaction: true,
		PrepareStmt:            d.prepare,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if o.tracing != nil {
		if err := o.tracing.Register(db); err != nil {
			return nil, fmt.Errorf("register database tracing: %w", err)
		}
	}

	database := &Database{DB: db, Driver: driver}
	pool, err := database.pool()
	if err != nil {
		return nil, err
	}
	configurePool(pool, cfg)
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return database, nil
}

func configurePool(pool *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	return pool, nil
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping is the database health check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// StatsCollector exposes the connection pool as go_sql_* Prometheus metrics
// labelled with dbName.
func (d *Database) StatsCollector(dbName string) (prometheus.Collector, error) {
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	return collectors.NewDBStatsCollector(pool, dbName), nil
}

// TenantScope restricts a query to one tenant's rows. A nil tenant would
// read every tenant, so it panics.
func TenantScope(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	if tenantID == uuid.Nil {
		panic("persistence: TenantScope with nil tenant ID")
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}
