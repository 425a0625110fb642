package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const orderAggregateType = "Order"

// OrderCreatedEvent is raised when a new order enters the ledger
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CustomerName string          `json:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

// EventType returns the event type name
func (e *OrderCreatedEvent) EventType() string {
	return "OrderCreated"
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("OrderCreated", o.ID, orderAggregateType),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerName:    o.CustomerName,
		TotalAmount:     o.TotalAmount,
		DueDate:         o.DueDate,
	}
}

// OrderPaidEvent is raised when an order becomes fully paid
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountReceived decimal.Decimal `json:"amount_received"`
}

// EventType returns the event type name
func (e *OrderPaidEvent) EventType() string {
	return "OrderPaid"
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("OrderPaid", o.ID, orderAggregateType),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		TotalAmount:     o.TotalAmount,
		AmountReceived:  o.AmountReceived,
	}
}

// OrderPartiallyPaidEvent is raised when a payment leaves a balance outstanding
type OrderPartiallyPaidEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
}

// EventType returns the event type name
func (e *OrderPartiallyPaidEvent) EventType() string {
	return "OrderPartiallyPaid"
}

// NewOrderPartiallyPaidEvent creates a new OrderPartiallyPaidEvent
func NewOrderPartiallyPaidEvent(o *Order, paymentAmount decimal.Decimal) *OrderPartiallyPaidEvent {
	return &OrderPartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("OrderPartiallyPaid", o.ID, orderAggregateType),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		PaymentAmount:   paymentAmount,
		BalanceAmount:   o.BalanceAmount,
	}
}

// OrderPaymentReversedEvent is raised when a payment amount is reversed off an order
type OrderPaymentReversedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	ReversedAmount decimal.Decimal `json:"reversed_amount"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`
}

// EventType returns the event type name
func (e *OrderPaymentReversedEvent) EventType() string {
	return "OrderPaymentReversed"
}

// NewOrderPaymentReversedEvent creates a new OrderPaymentReversedEvent
func NewOrderPaymentReversedEvent(o *Order, reversedAmount decimal.Decimal) *OrderPaymentReversedEvent {
	return &OrderPaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("OrderPaymentReversed", o.ID, orderAggregateType),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		ReversedAmount:  reversedAmount,
		BalanceAmount:   o.BalanceAmount,
	}
}

// OrderStatusChangedEvent is raised when the fulfilment status changes
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	PreviousStatus OrderStatus `json:"previous_status"`
	NewStatus      OrderStatus `json:"new_status"`
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return "OrderStatusChanged"
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, previous OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("OrderStatusChanged", o.ID, orderAggregateType),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		PreviousStatus:  previous,
		NewStatus:       o.Status,
	}
}

// OrderDeletedEvent is raised when an order is soft-deleted
type OrderDeletedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// EventType returns the event type name
func (e *OrderDeletedEvent) EventType() string {
	return "OrderDeleted"
}

// NewOrderDeletedEvent creates a new OrderDeletedEvent
func NewOrderDeletedEvent(o *Order) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("OrderDeleted", o.ID, orderAggregateType),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}
