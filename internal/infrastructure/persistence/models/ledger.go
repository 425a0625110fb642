package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AuditedAggregateModel
	OrderNumber    string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_number"`
	CustomerName   string               `gorm:"type:varchar(200);not null"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountReceived decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	BalanceAmount  decimal.Decimal      `gorm:"type:decimal(18,4);not null;index"`
	DueDate        *time.Time           `gorm:"index"`
	Status         ledger.OrderStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentStatus  ledger.PaymentStatus `gorm:"type:varchar(20);not null;default:'DUE';index"`
	Notes          string               `gorm:"type:text"`
	DeletedAt      *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *ledger.Order {
	order := &ledger.Order{
		OrderNumber:    m.OrderNumber,
		CustomerName:   m.CustomerName,
		TotalAmount:    m.TotalAmount,
		AmountReceived: m.AmountReceived,
		BalanceAmount:  m.BalanceAmount,
		DueDate:        m.DueDate,
		Status:         m.Status,
		PaymentStatus:  m.PaymentStatus,
		Notes:          m.Notes,
		DeletedAt:      m.DeletedAt,
	}
	m.PopulateAuditedAggregateRoot(&order.AuditedAggregateRoot)
	return order
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *ledger.Order) {
	m.FromDomainAuditedAggregateRoot(o.AuditedAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerName = o.CustomerName
	m.TotalAmount = o.TotalAmount
	m.AmountReceived = o.AmountReceived
	m.BalanceAmount = o.BalanceAmount
	m.DueDate = o.DueDate
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.Notes = o.Notes
	m.DeletedAt = o.DeletedAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *ledger.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// PaymentTransactionModel is the persistence model for payment transactions.
type PaymentTransactionModel struct {
	BaseModel
	OrderID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	AmountPaid  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Method      ledger.PaymentMethod `gorm:"type:varchar(20);not null;column:payment_method"`
	PaymentDate time.Time            `gorm:"not null;index"`
	DueDate     *time.Time
	Status      ledger.PaymentStatus `gorm:"type:varchar(20);not null;default:'DUE'"`
	Notes       string               `gorm:"type:text"`
	CreatedBy   *uuid.UUID           `gorm:"type:uuid;index"`
	DeletedAt   *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain PaymentTransaction entity.
func (m *PaymentTransactionModel) ToDomain() *ledger.PaymentTransaction {
	return &ledger.PaymentTransaction{
		BaseEntity:  m.BaseModel.ToDomain(),
		OrderID:     m.OrderID,
		AmountPaid:  m.AmountPaid,
		Method:      m.Method,
		PaymentDate: m.PaymentDate,
		DueDate:     m.DueDate,
		Status:      m.Status,
		Notes:       m.Notes,
		CreatedBy:   m.CreatedBy,
		DeletedAt:   m.DeletedAt,
	}
}

// FromDomain populates the persistence model from a domain PaymentTransaction entity.
func (m *PaymentTransactionModel) FromDomain(p *ledger.PaymentTransaction) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.OrderID = p.OrderID
	m.AmountPaid = p.AmountPaid
	m.Method = p.Method
	m.PaymentDate = p.PaymentDate
	m.DueDate = p.DueDate
	m.Status = p.Status
	m.Notes = p.Notes
	m.CreatedBy = p.CreatedBy
	m.DeletedAt = p.DeletedAt
}

// PaymentTransactionModelFromDomain creates a new persistence model from a domain PaymentTransaction.
func PaymentTransactionModelFromDomain(p *ledger.PaymentTransaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{}
	m.FromDomain(p)
	return m
}

// PaymentHistoryModel is the persistence model for the append-only payment
// audit trail. Rows are insert-only; there is no update or delete path.
type PaymentHistoryModel struct {
	ID        uuid.UUID               `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID               `gorm:"type:uuid;not null;index"`
	OrderID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Action    ledger.HistoryAction    `gorm:"type:varchar(10);not null"`
	OldValues *ledger.PaymentSnapshot `gorm:"type:jsonb"`
	NewValues *ledger.PaymentSnapshot `gorm:"type:jsonb"`
	ChangedBy *uuid.UUID              `gorm:"type:uuid;index"`
	ChangedAt time.Time               `gorm:"not null;index"`
	Notes     string                  `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentHistoryModel) TableName() string {
	return "payment_history"
}

// ToDomain converts the persistence model to a domain PaymentHistoryEntry.
func (m *PaymentHistoryModel) ToDomain() *ledger.PaymentHistoryEntry {
	return &ledger.PaymentHistoryEntry{
		ID:        m.ID,
		PaymentID: m.PaymentID,
		OrderID:   m.OrderID,
		Action:    m.Action,
		OldValues: m.OldValues,
		NewValues: m.NewValues,
		ChangedBy: m.ChangedBy,
		ChangedAt: m.ChangedAt,
		Notes:     m.Notes,
	}
}

// PaymentHistoryModelFromDomain creates a new persistence model from a domain PaymentHistoryEntry.
func PaymentHistoryModelFromDomain(e *ledger.PaymentHistoryEntry) *PaymentHistoryModel {
	return &PaymentHistoryModel{
		ID:        e.ID,
		PaymentID: e.PaymentID,
		OrderID:   e.OrderID,
		Action:    e.Action,
		OldValues: e.OldValues,
		NewValues: e.NewValues,
		ChangedBy: e.ChangedBy,
		ChangedAt: e.ChangedAt,
		Notes:     e.Notes,
	}
}
