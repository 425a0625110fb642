package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderFilter defines filtering options for order queries
type OrderFilter struct {
	shared.Filter
	Status        *OrderStatus     // Filter by fulfilment status
	PaymentStatus *PaymentStatus   // Filter by derived payment status
	DueFrom       *time.Time       // Filter by due date range start
	DueTo         *time.Time       // Filter by due date range end
	Overdue       *bool            // Filter only overdue orders
	MinBalance    *decimal.Decimal // Filter by minimum outstanding balance
	MaxBalance    *decimal.Decimal // Filter by maximum outstanding balance
}

// OrderRepository defines the interface for order aggregate persistence
type OrderRepository interface {
	// FindByID finds an order by ID (excluding soft-deleted orders)
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindAll finds orders with filtering
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, error)

	// FindOverdue finds orders with an unpaid balance past their due date
	FindOverdue(ctx context.Context, filter OrderFilter) ([]Order, error)

	// Save creates or updates an order
	Save(ctx context.Context, order *Order) error

	// SaveWithLock saves with optimistic locking (version check).
	// Returns shared.ErrConcurrencyConflict if the stored version moved.
	SaveWithLock(ctx context.Context, order *Order) error

	// Count counts orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// CountByPaymentStatus counts orders per derived payment status
	CountByPaymentStatus(ctx context.Context) (map[PaymentStatus]int64, error)

	// SumTotals returns total revenue and total received over non-deleted orders
	SumTotals(ctx context.Context) (revenue, received decimal.Decimal, err error)

	// SumPending returns the outstanding balance across non-deleted orders
	SumPending(ctx context.Context) (decimal.Decimal, error)

	// SumOverdue returns the outstanding balance of overdue orders
	SumOverdue(ctx context.Context) (decimal.Decimal, error)

	// ExistsByOrderNumber checks if an order number is already taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
}

// PaymentFilter defines filtering options for payment transaction queries
type PaymentFilter struct {
	shared.Filter
	OrderID  *uuid.UUID     // Filter by owning order
	Method   *PaymentMethod // Filter by payment method
	PaidFrom *time.Time     // Filter by payment date range start
	PaidTo   *time.Time     // Filter by payment date range end
}

// PaymentTransactionRepository defines the interface for payment persistence
type PaymentTransactionRepository interface {
	// FindByID finds a payment by ID (excluding soft-deleted payments)
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentTransaction, error)

	// FindByOrder finds all non-deleted payments for an order, newest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error)

	// FindAll finds payments with filtering
	FindAll(ctx context.Context, filter PaymentFilter) ([]PaymentTransaction, error)

	// Save creates or updates a payment transaction
	Save(ctx context.Context, payment *PaymentTransaction) error

	// SumByOrder sums non-deleted payment amounts for an order
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)

	// CountSince counts non-deleted payments with a payment date after the cutoff
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// PaymentHistoryRepository defines the append-only audit trail store.
// The interface deliberately exposes no update or delete: history entries
// are write-once.
type PaymentHistoryRepository interface {
	// Append persists a history entry
	Append(ctx context.Context, entry *PaymentHistoryEntry) error

	// FindByPayment returns the entries for a payment, newest first
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentHistoryEntry, error)

	// FindByOrder returns the entries for all payments of an order, newest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentHistoryEntry, error)
}

// TxRepositories bundles the repositories participating in one atomic unit
type TxRepositories struct {
	Orders   OrderRepository
	Payments PaymentTransactionRepository
	History  PaymentHistoryRepository
}

// UnitOfWork executes fn inside a single store transaction. The payment row,
// the order aggregate update and the history append either all commit or all
// roll back; a failed history write aborts the whole unit.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos TxRepositories) error) error
}
