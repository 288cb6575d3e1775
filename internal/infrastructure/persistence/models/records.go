package models

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model of a registered customer.
type CustomerModel struct {
	RecordModel
	Name      string    `gorm:"type:varchar(200);not null"`
	Phone     string    `gorm:"type:varchar(50);index"`
	Address   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a ledger Customer
func (m *CustomerModel) ToDomain() ledger.Customer {
	return ledger.Customer{
		ID:      m.ID,
		OwnerID: m.TenantID,
		Name:    m.Name,
		Phone:   m.Phone,
		Address: m.Address,
	}
}

// OrderModel is the persistence model of a sales order header.
type OrderModel struct {
	RecordModel
	CustomerID      *string             `gorm:"type:varchar(64);index"`
	CustomerName    string              `gorm:"type:varchar(200)"`
	CustomerPhone   string              `gorm:"type:varchar(50)"`
	CustomerAddress string              `gorm:"type:text"`
	Status          string              `gorm:"type:varchar(20);not null;default:'draft';index"`
	TotalAmount     decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	OrderDate       *time.Time          `gorm:"index"`
	CreatedAt       *time.Time          `gorm:"autoCreateTime:false"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a ledger Order.
// Status is lower-cased so that "CONFIRMED" and "confirmed" rows agree.
func (m *OrderModel) ToDomain() ledger.Order {
	return ledger.Order{
		ID:              m.ID,
		OwnerID:         m.TenantID,
		CustomerID:      m.CustomerID,
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		CustomerAddress: m.CustomerAddress,
		Status:          ledger.OrderStatus(strings.ToLower(strings.TrimSpace(m.Status))),
		TotalAmount:     m.TotalAmount,
		OrderDate:       m.OrderDate,
		CreatedAt:       m.CreatedAt,
	}
}

// PaymentModel is the persistence model of a recorded payment.
type PaymentModel struct {
	RecordModel
	CustomerID   *string             `gorm:"type:varchar(64);index"`
	CustomerName string              `gorm:"type:varchar(200)"`
	Amount       decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	PaymentDate  *time.Time          `gorm:"index"`
	Method       string              `gorm:"type:varchar(50)"`
	Note         string              `gorm:"type:text"`
	CreatedAt    *time.Time          `gorm:"autoCreateTime:false"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a ledger Payment
func (m *PaymentModel) ToDomain() ledger.Payment {
	return ledger.Payment{
		ID:           m.ID,
		OwnerID:      m.TenantID,
		CustomerID:   m.CustomerID,
		CustomerName: m.CustomerName,
		Amount:       m.Amount,
		Date:         m.PaymentDate,
		CreatedAt:    m.CreatedAt,
		Method:       m.Method,
		Note:         m.Note,
	}
}
