package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	conflictRetryAttempts = 3
	conflictRetryBase     = 25 * time.Millisecond
)

// PaymentService coordinates the payment write path. Every mutation runs as a
// single atomic unit: the payment row, the order totals and the history entry
// commit together or not at all.
type PaymentService struct {
	uow      ledger.UnitOfWork
	payments ledger.PaymentTransactionRepository
	history  ledger.PaymentHistoryRepository
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewPaymentService creates a payment service
func NewPaymentService(
	uow ledger.UnitOfWork,
	payments ledger.PaymentTransactionRepository,
	history ledger.PaymentHistoryRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		uow:      uow,
		payments: payments,
		history:  history,
		eventBus: eventBus,
		logger:   logger,
	}
}

// withConflictRetry re-runs fn when the optimistic version check on the order
// row loses the race. Each attempt re-reads the aggregate inside a fresh
// transaction, so a retry observes the winner's committed state.
func (s *PaymentService) withConflictRetry(ctx context.Context, fn func(repos ledger.TxRepositories) error) error {
	var err error
	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := conflictRetryBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = s.uow.Execute(ctx, fn)
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		s.logger.Warn("optimistic lock conflict, retrying",
			zap.Int("attempt", attempt+1))
	}
	return err
}

// RecordPayment records a payment against an order and updates the order's
// running totals and derived payment status
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*ledger.PaymentTransaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, req.OrderID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, string(req.Method))

	var (
		payment *ledger.PaymentTransaction
		events  []shared.DomainEvent
	)
	err := s.withConflictRetry(ctx, func(repos ledger.TxRepositories) error {
		order, err := repos.Orders.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if err := order.ApplyPayment(req.Amount); err != nil {
			return err
		}

		payment, err = ledger.NewPaymentTransaction(order.ID, req.Amount, req.Method, req.PaymentDate, req.DueDate, req.Notes, req.Actor)
		if err != nil {
			return err
		}
		payment.SetStatus(order.PaymentStatus)

		if err := repos.Payments.Save(ctx, payment); err != nil {
			return err
		}

		entry, err := ledger.NewCreateEntry(payment, req.Actor, req.Notes)
		if err != nil {
			return err
		}
		if err := repos.History.Append(ctx, entry); err != nil {
			return err
		}

		if err := repos.Orders.SaveWithLock(ctx, order); err != nil {
			return err
		}
		events = order.GetDomainEvents()
		order.ClearDomainEvents()
		return nil
	})
	if err != nil {
		s.logger.Error("failed to record payment",
			zap.String("order_id", req.OrderID.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	s.publishEvents(ctx, events)
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", req.OrderID.String()),
		zap.String("amount", req.Amount.String()))
	return payment, nil
}

// UpdatePayment edits a payment in place. The order totals are rebalanced by
// reversing the old amount and applying the new one, and an update history
// entry captures the before and after snapshots.
func (s *PaymentService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*ledger.PaymentTransaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_payment", "update")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, req.PaymentID.String())

	if req.Fields.IsEmpty() {
		return nil, shared.NewDomainError("EMPTY_UPDATE", "payment update contains no fields")
	}

	var (
		payment *ledger.PaymentTransaction
		events  []shared.DomainEvent
	)
	err := s.withConflictRetry(ctx, func(repos ledger.TxRepositories) error {
		var err error
		payment, err = repos.Payments.FindByID(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		order, err := repos.Orders.FindByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		oldSnapshot := payment.Snapshot()
		oldAmount := payment.AmountPaid

		if err := payment.Apply(req.Fields); err != nil {
			return err
		}

		amountChanged := !payment.AmountPaid.Equal(oldAmount)
		if amountChanged {
			if err := order.AdjustPayment(oldAmount, payment.AmountPaid); err != nil {
				return err
			}
		}
		payment.SetStatus(order.PaymentStatus)

		if err := repos.Payments.Save(ctx, payment); err != nil {
			return err
		}

		entry, err := ledger.NewUpdateEntry(payment.ID, payment.OrderID, oldSnapshot, payment.Snapshot(), req.Actor, req.Notes)
		if err != nil {
			return err
		}
		if err := repos.History.Append(ctx, entry); err != nil {
			return err
		}

		if amountChanged {
			if err := repos.Orders.SaveWithLock(ctx, order); err != nil {
				return err
			}
			events = order.GetDomainEvents()
			order.ClearDomainEvents()
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update payment",
			zap.String("payment_id", req.PaymentID.String()),
			zap.Error(err))
		return nil, err
	}

	s.publishEvents(ctx, events)
	s.logger.Info("payment updated",
		zap.String("payment_id", payment.ID.String()))
	return payment, nil
}

// DeletePayment soft-deletes a payment, reverses its amount from the order
// totals and appends a delete history entry
func (s *PaymentService) DeletePayment(ctx context.Context, paymentID uuid.UUID, actor uuid.UUID, notes string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_payment", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	var events []shared.DomainEvent
	err := s.withConflictRetry(ctx, func(repos ledger.TxRepositories) error {
		payment, err := repos.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		order, err := repos.Orders.FindByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		if err := order.ReversePayment(payment.AmountPaid); err != nil {
			return err
		}
		if err := payment.MarkDeleted(); err != nil {
			return err
		}

		if err := repos.Payments.Save(ctx, payment); err != nil {
			return err
		}

		entry, err := ledger.NewDeleteEntry(payment, actor, notes)
		if err != nil {
			return err
		}
		if err := repos.History.Append(ctx, entry); err != nil {
			return err
		}

		if err := repos.Orders.SaveWithLock(ctx, order); err != nil {
			return err
		}
		events = order.GetDomainEvents()
		order.ClearDomainEvents()
		return nil
	})
	if err != nil {
		s.logger.Error("failed to delete payment",
			zap.String("payment_id", paymentID.String()),
			zap.Error(err))
		return err
	}

	s.publishEvents(ctx, events)
	s.logger.Info("payment deleted",
		zap.String("payment_id", paymentID.String()))
	return nil
}

// GetPayment returns a single payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*ledger.PaymentTransaction, error) {
	return s.payments.FindByID(ctx, paymentID)
}

// GetHistory returns the audit trail of a payment, newest first, with the
// field-level diff derived for each entry
func (s *PaymentService) GetHistory(ctx context.Context, paymentID uuid.UUID) ([]HistoryEntryView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_payment", "history")
	defer span.End()

	entries, err := s.history.FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	views := make([]HistoryEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, HistoryEntryView{
			Entry: entry,
			Diff:  entry.Diff(),
		})
	}
	return views, nil
}

func (s *PaymentService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	for _, event := range events {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}
