package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCheck        PaymentMethod = "CHECK"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodBankTransfer,
		PaymentMethodCard, PaymentMethodCheck:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentTransaction is a single payment recorded against an order.
// The owning Order aggregate carries the optimistic lock; a transaction row
// is only ever written inside the same atomic unit as its order update.
type PaymentTransaction struct {
	shared.BaseEntity
	OrderID     uuid.UUID       `json:"order_id"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Method      PaymentMethod   `json:"payment_method"`
	PaymentDate time.Time       `json:"payment_date"`
	DueDate     *time.Time      `json:"due_date"`
	Status      PaymentStatus   `json:"status"` // snapshot of the order's status, recomputed on read
	Notes       string          `json:"notes"`
	CreatedBy   *uuid.UUID      `json:"created_by"`
	DeletedAt   *time.Time      `json:"deleted_at"`
}

// NewPaymentTransaction creates a new payment transaction
func NewPaymentTransaction(
	orderID uuid.UUID,
	amount decimal.Decimal,
	method PaymentMethod,
	paymentDate time.Time,
	dueDate *time.Time,
	notes string,
	createdBy uuid.UUID,
) (*PaymentTransaction, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", method))
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	p := &PaymentTransaction{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     orderID,
		AmountPaid:  amount,
		Method:      method,
		PaymentDate: paymentDate,
		DueDate:     dueDate,
		Notes:       notes,
	}
	if createdBy != uuid.Nil {
		p.CreatedBy = &createdBy
	}

	return p, nil
}

// PaymentUpdate carries the optional fields of an update request.
// Nil pointers leave the corresponding field unchanged.
type PaymentUpdate struct {
	Amount      *decimal.Decimal
	Method      *PaymentMethod
	PaymentDate *time.Time
	DueDate     *time.Time
	Notes       *string
}

// IsEmpty returns true if the update changes nothing
func (u PaymentUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Method == nil && u.PaymentDate == nil &&
		u.DueDate == nil && u.Notes == nil
}

// Apply validates and applies the update to the transaction
func (p *PaymentTransaction) Apply(update PaymentUpdate) error {
	if p.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot update a deleted payment")
	}
	if update.Amount != nil {
		if update.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
		}
		p.AmountPaid = *update.Amount
	}
	if update.Method != nil {
		if !update.Method.IsValid() {
			return shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", *update.Method))
		}
		p.Method = *update.Method
	}
	if update.PaymentDate != nil {
		p.PaymentDate = *update.PaymentDate
	}
	if update.DueDate != nil {
		p.DueDate = update.DueDate
	}
	if update.Notes != nil {
		p.Notes = *update.Notes
	}

	p.UpdatedAt = time.Now()

	return nil
}

// MarkDeleted soft-deletes the payment transaction
func (p *PaymentTransaction) MarkDeleted() error {
	if p.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Payment is already deleted")
	}
	now := time.Now()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

// IsDeleted returns true if the payment has been soft-deleted
func (p *PaymentTransaction) IsDeleted() bool {
	return p.DeletedAt != nil
}

// SetStatus records the owning order's derived status on the transaction.
// The snapshot is informational; reads re-derive from the order aggregate.
func (p *PaymentTransaction) SetStatus(status PaymentStatus) {
	p.Status = status
}

// Snapshot captures the transaction's audited fields for the history trail
func (p *PaymentTransaction) Snapshot() *PaymentSnapshot {
	return &PaymentSnapshot{
		OrderID:     p.OrderID,
		AmountPaid:  p.AmountPaid,
		Method:      p.Method,
		PaymentDate: p.PaymentDate,
		DueDate:     p.DueDate,
		Status:      p.Status,
		Notes:       p.Notes,
	}
}
