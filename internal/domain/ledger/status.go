package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the payment state of an order, derived from its
// aggregate amounts and due date.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"    // Fully paid, balance <= 0
	PaymentStatusPartial PaymentStatus = "PARTIAL" // Some payment received, balance > 0
	PaymentStatusDue     PaymentStatus = "DUE"     // No payment received, not yet overdue
	PaymentStatusOverdue PaymentStatus = "OVERDUE" // Balance > 0 past the due date
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPartial, PaymentStatusDue, PaymentStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// DeriveStatus computes the payment status for an order from its totals and
// due date. It is the single source of truth for status: every code path that
// persists or displays a payment status must go through it.
func DeriveStatus(totalAmount, amountReceived decimal.Decimal, dueDate *time.Time, now time.Time) PaymentStatus {
	balance := totalAmount.Sub(amountReceived)

	if balance.LessThanOrEqual(decimal.Zero) {
		return PaymentStatusPaid
	}
	if dueDate != nil && dueDate.Before(now) {
		return PaymentStatusOverdue
	}
	if amountReceived.GreaterThan(decimal.Zero) {
		return PaymentStatusPartial
	}
	return PaymentStatusDue
}

// OrderStatus represents the fulfilment state of an order. It is owned by the
// order subsystem but mutated through the ledger's bulk coordinator.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}
