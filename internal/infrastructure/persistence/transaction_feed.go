package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransactionFeed implements ledger.TransactionFeed over the customers,
// orders and payments tables.
type GormTransactionFeed struct {
	db        *gorm.DB
	txOptions *sql.TxOptions
	now       func() time.Time
}

// NewGormTransactionFeed creates a new GormTransactionFeed.
// On Postgres the three reads share one repeatable-read, read-only transaction
// so a snapshot never mixes rows from before and after a concurrent write.
func NewGormTransactionFeed(db *gorm.DB) *GormTransactionFeed {
	f := &GormTransactionFeed{db: db, now: time.Now}
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		f.txOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return f
}

// LoadSnapshot reads every customer, order and payment of a tenant.
// Orders and payments come back in creation order, ties broken by primary key.
func (f *GormTransactionFeed) LoadSnapshot(ctx context.Context, tenantID uuid.UUID) (*ledger.Snapshot, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidTenant, "Tenant ID is required")
	}

	var customers []models.CustomerModel
	var orders []models.OrderModel
	var payments []models.PaymentModel

	read := func(tx *gorm.DB) error {
		scoped := func(order string) *gorm.DB {
			return tx.Scopes(TenantScope(tenantID)).Order(order)
		}
		if err := scoped("id").Find(&customers).Error; err != nil {
			return fmt.Errorf("failed to load customers: %w", err)
		}
		if err := scoped("created_at, id").Find(&orders).Error; err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		if err := scoped("created_at, id").Find(&payments).Error; err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		return nil
	}

	db := f.db.WithContext(ctx)
	var err error
	if f.txOptions != nil {
		err = db.Transaction(read, f.txOptions)
	} else {
		err = read(db)
	}
	if err != nil {
		return nil, err
	}

	snap := &ledger.Snapshot{
		TenantID:  tenantID,
		Customers: make([]ledger.Customer, 0, len(customers)),
		Orders:    make([]ledger.Order, 0, len(orders)),
		Payments:  make([]ledger.Payment, 0, len(payments)),
		LoadedAt:  f.now(),
	}
	for i := range customers {
		snap.Customers = append(snap.Customers, customers[i].ToDomain())
	}
	for i := range orders {
		snap.Orders = append(snap.Orders, orders[i].ToDomain())
	}
	for i := range payments {
		snap.Payments = append(snap.Payments, payments[i].ToDomain())
	}
	return snap, nil
}

// Ensure GormTransactionFeed implements ledger.TransactionFeed
var _ ledger.TransactionFeed = (*GormTransactionFeed)(nil)
