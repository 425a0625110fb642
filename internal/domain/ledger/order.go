package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Order is the per-order payment aggregate. The ledger engine is the only
// writer of AmountReceived and BalanceAmount; every payment mutation goes
// through ApplyPayment/ReversePayment so the running totals stay consistent
// with the sum of non-deleted payment transactions.
type Order struct {
	shared.AuditedAggregateRoot
	OrderNumber    string          `json:"order_number"`
	CustomerName   string          `json:"customer_name"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`
	DueDate        *time.Time      `json:"due_date"`
	Status         OrderStatus     `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	Notes          string          `json:"notes"`
	DeletedAt      *time.Time      `json:"deleted_at"`
}

// NewOrder creates a new order with no payments applied
func NewOrder(
	orderNumber string,
	customerName string,
	totalAmount decimal.Decimal,
	dueDate *time.Time,
	createdBy uuid.UUID,
) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be negative")
	}

	o := &Order{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		OrderNumber:          orderNumber,
		CustomerName:         customerName,
		TotalAmount:          totalAmount,
		AmountReceived:       decimal.Zero,
		BalanceAmount:        totalAmount,
		DueDate:              dueDate,
		Status:               OrderStatusPending,
	}
	o.PaymentStatus = DeriveStatus(o.TotalAmount, o.AmountReceived, o.DueDate, time.Now())

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

// ApplyPayment applies a payment amount to the order aggregate.
// The strict overpayment policy rejects any amount that would drive the
// balance negative.
func (o *Order) ApplyPayment(amount decimal.Decimal) error {
	if o.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot apply payment to a deleted order")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(o.BalanceAmount) {
		return shared.NewDomainError("OVERPAYMENT_REJECTED",
			fmt.Sprintf("Payment amount %s exceeds balance %s", amount.String(), o.BalanceAmount.String()))
	}

	o.AmountReceived = o.AmountReceived.Add(amount)
	o.recalculate()

	if o.PaymentStatus == PaymentStatusPaid {
		o.AddDomainEvent(NewOrderPaidEvent(o))
	} else {
		o.AddDomainEvent(NewOrderPartiallyPaidEvent(o, amount))
	}

	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// ReversePayment removes a previously applied payment amount from the
// aggregate, e.g. when a payment transaction is updated or deleted.
func (o *Order) ReversePayment(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversal amount must be positive")
	}
	if amount.GreaterThan(o.AmountReceived) {
		return shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Reversal amount %s exceeds amount received %s", amount.String(), o.AmountReceived.String()))
	}

	o.AmountReceived = o.AmountReceived.Sub(amount)
	o.recalculate()

	o.AddDomainEvent(NewOrderPaymentReversedEvent(o, amount))

	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// AdjustPayment replaces a previously applied amount with a new one in a
// single version bump, used when a payment transaction is edited. The new
// amount is checked against the balance as it stands without the old amount.
func (o *Order) AdjustPayment(oldAmount, newAmount decimal.Decimal) error {
	if o.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot adjust payment on a deleted order")
	}
	if oldAmount.LessThanOrEqual(decimal.Zero) || newAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if oldAmount.GreaterThan(o.AmountReceived) {
		return shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Reversal amount %s exceeds amount received %s", oldAmount.String(), o.AmountReceived.String()))
	}
	availableBalance := o.BalanceAmount.Add(oldAmount)
	if newAmount.GreaterThan(availableBalance) {
		return shared.NewDomainError("OVERPAYMENT_REJECTED",
			fmt.Sprintf("Payment amount %s exceeds balance %s", newAmount.String(), availableBalance.String()))
	}

	o.AmountReceived = o.AmountReceived.Sub(oldAmount).Add(newAmount)
	o.recalculate()

	if o.PaymentStatus == PaymentStatusPaid {
		o.AddDomainEvent(NewOrderPaidEvent(o))
	} else {
		o.AddDomainEvent(NewOrderPartiallyPaidEvent(o, newAmount))
	}

	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// recalculate refreshes the derived balance and payment status
func (o *Order) recalculate() {
	o.BalanceAmount = o.TotalAmount.Sub(o.AmountReceived)
	o.PaymentStatus = DeriveStatus(o.TotalAmount, o.AmountReceived, o.DueDate, time.Now())
}

// RefreshPaymentStatus re-derives the payment status snapshot against now.
// The stored status is a snapshot; callers that care about overdue drift
// should refresh before displaying.
func (o *Order) RefreshPaymentStatus(now time.Time) {
	o.PaymentStatus = DeriveStatus(o.TotalAmount, o.AmountReceived, o.DueDate, now)
}

// UpdateStatus transitions the order's fulfilment status
func (o *Order) UpdateStatus(status OrderStatus) error {
	if o.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot update status of a deleted order")
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", status))
	}

	previous := o.Status
	o.Status = status
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous))

	return nil
}

// SoftDelete marks the order as deleted and cancels it. Records are never
// physically removed so the audit trail stays intact.
func (o *Order) SoftDelete() error {
	if o.IsDeleted() {
		return shared.NewDomainError("INVALID_STATE", "Order is already deleted")
	}

	now := time.Now()
	o.DeletedAt = &now
	o.Status = OrderStatusCancelled
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderDeletedEvent(o))

	return nil
}

// SetDueDate updates the due date and re-derives the payment status
func (o *Order) SetDueDate(dueDate *time.Time) {
	o.DueDate = dueDate
	o.recalculate()
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// IsDeleted returns true if the order has been soft-deleted
func (o *Order) IsDeleted() bool {
	return o.DeletedAt != nil
}

// IsPaid returns true if the order is fully paid
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// IsOverdue returns true if the order has an unpaid balance past its due date
func (o *Order) IsOverdue() bool {
	return DeriveStatus(o.TotalAmount, o.AmountReceived, o.DueDate, time.Now()) == PaymentStatusOverdue
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (o *Order) DaysOverdue() int {
	if !o.IsOverdue() {
		return 0
	}
	return int(time.Since(*o.DueDate).Hours() / 24)
}
