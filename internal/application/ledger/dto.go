package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest carries the data needed to register an order in the ledger
type CreateOrderRequest struct {
	OrderNumber  string
	CustomerName string
	TotalAmount  decimal.Decimal
	DueDate      *time.Time
	Actor        uuid.UUID
}

// RecordPaymentRequest carries the data for recording a payment against an order
type RecordPaymentRequest struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Method      ledger.PaymentMethod
	PaymentDate time.Time
	DueDate     *time.Time
	Notes       string
	Actor       uuid.UUID
}

// UpdatePaymentRequest carries the optional fields of a payment update
type UpdatePaymentRequest struct {
	PaymentID uuid.UUID
	Fields    ledger.PaymentUpdate
	Notes     string
	Actor     uuid.UUID
}

// OrderSummary is the read model for an order's payment position
type OrderSummary struct {
	OrderID        uuid.UUID            `json:"order_id"`
	OrderNumber    string               `json:"order_number"`
	CustomerName   string               `json:"customer_name"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	AmountReceived decimal.Decimal      `json:"amount_received"`
	BalanceAmount  decimal.Decimal      `json:"balance_amount"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Status         ledger.OrderStatus   `json:"status"`
	PaymentStatus  ledger.PaymentStatus `json:"payment_status"`
}

// BulkFailure describes a single failed item in a bulk operation
type BulkFailure struct {
	ID      uuid.UUID `json:"id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// BulkResult reports per-item outcomes of a bulk operation. A bulk run never
// rolls back committed items; callers re-drive failed items explicitly.
type BulkResult struct {
	Succeeded []uuid.UUID   `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// HasFailures returns true if any item failed
func (r *BulkResult) HasFailures() bool {
	return len(r.Failed) > 0
}

// HistoryEntryView is a history entry together with its derived field diff
type HistoryEntryView struct {
	Entry ledger.PaymentHistoryEntry `json:"entry"`
	Diff  []ledger.FieldChange       `json:"diff"`
}

// MetricsSnapshot is the read-only dashboard rollup over the ledger.
// Snapshots are eventually consistent with writers; staleness of a few
// seconds is acceptable.
type MetricsSnapshot struct {
	TotalRevenue       decimal.Decimal                `json:"total_revenue"`
	TotalReceived      decimal.Decimal                `json:"total_received"`
	PendingAmount      decimal.Decimal                `json:"pending_amount"`
	OverdueAmount      decimal.Decimal                `json:"overdue_amount"`
	CountsByStatus     map[ledger.PaymentStatus]int64 `json:"counts_by_status"`
	OrderCount         int64                          `json:"order_count"`
	AverageOrderValue  decimal.Decimal                `json:"average_order_value"`
	RecentPaymentCount int64                          `json:"recent_payment_count"`
	PeriodDays         int                            `json:"period_days"`
	GeneratedAt        time.Time                      `json:"generated_at"`
}
