// Package integration runs the ledger against real Postgres and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/migrations"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated Postgres database in its own container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh Postgres container and applies the embedded migrations
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)

	m, err := migration.New(sqlDB, zap.NewNop(), migration.WithFS(migrations.FS))
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CleanTables truncates the ledger source tables
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	for _, table := range []string{"payments", "orders", "customers"} {
		require.NoError(tdb.t, tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)).Error)
	}
}

// Seeder inserts ledger source rows for one tenant
type Seeder struct {
	tdb      *TestDB
	tenantID uuid.UUID
	seq      int
}

// Seed returns a Seeder bound to tenantID
func (tdb *TestDB) Seed(tenantID uuid.UUID) *Seeder {
	return &Seeder{tdb: tdb, tenantID: tenantID}
}

func (s *Seeder) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%s-%03d", prefix, s.tenantID.String()[:8], s.seq)
}

// Customer inserts a registered customer and returns its ID
func (s *Seeder) Customer(name, phone string) string {
	s.tdb.t.Helper()
	id := s.nextID("c")
	require.NoError(s.tdb.t, s.tdb.DB.Create(&models.CustomerModel{
		RecordModel: models.RecordModel{ID: id, TenantID: s.tenantID},
		Name:        name,
		Phone:       phone,
		CreatedAt:   time.Now(),
	}).Error)
	return id
}

// Order inserts an order. A nil amount or date is stored as NULL.
func (s *Seeder) Order(customerID *string, customerName, status string, amount *decimal.Decimal, date *time.Time) string {
	s.tdb.t.Helper()
	id := s.nextID("o")
	row := models.OrderModel{
		RecordModel:  models.RecordModel{ID: id, TenantID: s.tenantID},
		CustomerID:   customerID,
		CustomerName: customerName,
		Status:       status,
		OrderDate:    date,
		CreatedAt:    date,
	}
	if amount != nil {
		row.TotalAmount = decimal.NewNullDecimal(*amount)
	}
	require.NoError(s.tdb.t, s.tdb.DB.Create(&row).Error)
	return id
}

// Payment inserts a payment. A nil amount or date is stored as NULL.
func (s *Seeder) Payment(customerID *string, customerName string, amount *decimal.Decimal, date *time.Time) string {
	s.tdb.t.Helper()
	id := s.nextID("p")
	row := models.PaymentModel{
		RecordModel:  models.RecordModel{ID: id, TenantID: s.tenantID},
		CustomerID:   customerID,
		CustomerName: customerName,
		PaymentDate:  date,
		CreatedAt:    date,
		Method:       "cash",
	}
	if amount != nil {
		row.Amount = decimal.NewNullDecimal(*amount)
	}
	require.NoError(s.tdb.t, s.tdb.DB.Create(&row).Error)
	return id
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
	return &t
}

func ptr(s string) *string {
	return &s
}
