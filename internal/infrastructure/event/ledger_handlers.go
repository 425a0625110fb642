package event

import (
	"context"

	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LedgerActivityHandler writes a structured activity log line for every order
// lifecycle event. The console's activity feed tails these log entries.
type LedgerActivityHandler struct {
	logger *zap.Logger
}

// NewLedgerActivityHandler creates the activity log handler
func NewLedgerActivityHandler(logger *zap.Logger) *LedgerActivityHandler {
	return &LedgerActivityHandler{logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *LedgerActivityHandler) EventTypes() []string {
	return []string{
		"OrderCreated",
		"OrderPaid",
		"OrderPartiallyPaid",
		"OrderPaymentReversed",
		"OrderStatusChanged",
		"OrderDeleted",
	}
}

// Handle processes a single order event
func (h *LedgerActivityHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("order_id", event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *ledger.OrderPaidEvent:
		fields = append(fields, zap.String("total_amount", e.TotalAmount.String()))
	case *ledger.OrderPartiallyPaidEvent:
		fields = append(fields,
			zap.String("amount", e.PaymentAmount.String()),
			zap.String("balance", e.BalanceAmount.String()))
	case *ledger.OrderPaymentReversedEvent:
		fields = append(fields,
			zap.String("amount", e.ReversedAmount.String()),
			zap.String("balance", e.BalanceAmount.String()))
	case *ledger.OrderStatusChangedEvent:
		fields = append(fields,
			zap.String("previous_status", string(e.PreviousStatus)),
			zap.String("new_status", string(e.NewStatus)))
	}

	h.logger.Info("order activity", fields...)
	return nil
}

var _ shared.EventHandler = (*LedgerActivityHandler)(nil)
