package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderService handles order lifecycle and the read side of the ledger
type OrderService struct {
	uow      ledger.UnitOfWork
	orders   ledger.OrderRepository
	payments ledger.PaymentTransactionRepository
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewOrderService creates an order service
func NewOrderService(
	uow ledger.UnitOfWork,
	orders ledger.OrderRepository,
	payments ledger.PaymentTransactionRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		uow:      uow,
		orders:   orders,
		payments: payments,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateOrder registers a new order with an open balance
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*ledger.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_order", "create")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderNumber, req.OrderNumber)

	exists, err := s.orders.ExistsByOrderNumber(ctx, req.OrderNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("DUPLICATE_ORDER_NUMBER", "order number already exists")
	}

	order, err := ledger.NewOrder(req.OrderNumber, req.CustomerName, req.TotalAmount, req.DueDate, req.Actor)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		s.logger.Error("failed to create order",
			zap.String("order_number", req.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	for _, event := range events {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber))
	return order, nil
}

// GetOrder returns an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*ledger.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

// GetSummary returns the payment position of an order. The payment status is
// re-derived against the current clock so an order past its due date reads as
// overdue even before any writer touches the row.
func (s *OrderService) GetSummary(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_order", "summary")
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.RefreshPaymentStatus(time.Now())

	return &OrderSummary{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerName:   order.CustomerName,
		TotalAmount:    order.TotalAmount,
		AmountReceived: order.AmountReceived,
		BalanceAmount:  order.BalanceAmount,
		DueDate:        order.DueDate,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
	}, nil
}

// ListOrders returns a filtered, paginated page of orders
func (s *OrderService) ListOrders(ctx context.Context, filter ledger.OrderFilter) (*shared.Paginated[ledger.Order], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_order", "list")
	defer span.End()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	orders, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range orders {
		orders[i].RefreshPaymentStatus(now)
	}
	page := shared.NewPaginated(orders, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListOverdue returns orders whose due date has passed with a balance still open
func (s *OrderService) ListOverdue(ctx context.Context, filter ledger.OrderFilter) ([]ledger.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_order", "list_overdue")
	defer span.End()

	orders, err := s.orders.FindOverdue(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := range orders {
		orders[i].RefreshPaymentStatus(now)
	}
	return orders, nil
}

// ListPayments returns the payments recorded against an order, newest first.
// Soft-deleted payments are excluded.
func (s *OrderService) ListPayments(ctx context.Context, orderID uuid.UUID) ([]ledger.PaymentTransaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_order", "payments")
	defer span.End()

	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.payments.FindByOrder(ctx, orderID)
}

// UpdateStatus transitions an order's fulfilment status
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status ledger.OrderStatus) (*ledger.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_order", "update_status")
	defer span.End()

	var result *ledger.Order
	err := s.uow.Execute(ctx, func(repos ledger.TxRepositories) error {
		order, err := repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.UpdateStatus(status); err != nil {
			return err
		}
		if err := repos.Orders.SaveWithLock(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := result.GetDomainEvents()
	result.ClearDomainEvents()
	for _, event := range events {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	return result, nil
}
