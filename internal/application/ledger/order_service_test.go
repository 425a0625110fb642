package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrderFixture(t *testing.T) (*OrderService, *memStore, *capturingEventBus) {
	t.Helper()
	store := newMemStore()
	bus := &capturingEventBus{}
	svc := NewOrderService(
		&memUnitOfWork{store: store},
		&memOrderRepo{store: store},
		&memPaymentRepo{store: store},
		bus,
		zap.NewNop(),
	)
	return svc, store, bus
}

func TestOrderService_CreateOrder(t *testing.T) {
	svc, store, bus := newOrderFixture(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		OrderNumber:  "ORD-2026-100",
		CustomerName: "Patel Hardware",
		TotalAmount:  decimal.NewFromInt(2500),
		Actor:        uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatusDue, order.PaymentStatus)
	assert.Equal(t, ledger.OrderStatusPending, order.Status)

	stored, ok := store.getOrder(order.ID)
	require.True(t, ok)
	assert.True(t, stored.BalanceAmount.Equal(decimal.NewFromInt(2500)))
	assert.Contains(t, bus.eventTypes(), "OrderCreated")
}

func TestOrderService_CreateOrder_DuplicateNumber(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	req := CreateOrderRequest{
		OrderNumber:  "ORD-2026-100",
		CustomerName: "Patel Hardware",
		TotalAmount:  decimal.NewFromInt(2500),
		Actor:        uuid.New(),
	}
	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), req)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DUPLICATE_ORDER_NUMBER", domainErr.Code)
}

func TestOrderService_GetSummary_RefreshesOverdue(t *testing.T) {
	svc, store, _ := newOrderFixture(t)

	// seeded before its due date with a DUE snapshot, read after the due
	// date has passed
	due := time.Now().Add(-48 * time.Hour)
	order, err := ledger.NewOrder("ORD-2026-101", "Acme Traders", decimal.NewFromInt(1000), nil, uuid.New())
	require.NoError(t, err)
	order.DueDate = &due
	store.seedOrder(order)

	summary, err := svc.GetSummary(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatusOverdue, summary.PaymentStatus)
	assert.True(t, summary.BalanceAmount.Equal(decimal.NewFromInt(1000)))
}

func TestOrderService_GetSummary_NotFound(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	_, err := svc.GetSummary(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderService_ListOrders_Paginates(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	for i := 0; i < 3; i++ {
		order, err := ledger.NewOrder(
			"ORD-2026-20"+string(rune('0'+i)), "Customer", decimal.NewFromInt(100), nil, uuid.New())
		require.NoError(t, err)
		store.seedOrder(order)
	}

	page, err := svc.ListOrders(context.Background(), ledger.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 1, page.Page)
}

func TestOrderService_ListPayments(t *testing.T) {
	svc, store, _ := newOrderFixture(t)
	order, err := ledger.NewOrder("ORD-2026-300", "Acme Traders", decimal.NewFromInt(1000), nil, uuid.New())
	require.NoError(t, err)
	store.seedOrder(order)

	paySvc := NewPaymentService(
		&memUnitOfWork{store: store},
		&memPaymentRepo{store: store},
		&memHistoryRepo{store: store},
		&capturingEventBus{},
		zap.NewNop(),
	)
	for _, amount := range []int64{100, 200} {
		_, err := paySvc.RecordPayment(context.Background(), RecordPaymentRequest{
			OrderID: order.ID,
			Amount:  decimal.NewFromInt(amount),
			Method:  ledger.PaymentMethodCash,
			Actor:   uuid.New(),
		})
		require.NoError(t, err)
	}

	payments, err := svc.ListPayments(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestOrderService_ListPayments_OrderNotFound(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	_, err := svc.ListPayments(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	svc, store, bus := newOrderFixture(t)
	order, err := ledger.NewOrder("ORD-2026-400", "Acme Traders", decimal.NewFromInt(500), nil, uuid.New())
	require.NoError(t, err)
	store.seedOrder(order)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, ledger.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderStatusShipped, updated.Status)

	stored, _ := store.getOrder(order.ID)
	assert.Equal(t, ledger.OrderStatusShipped, stored.Status)
	assert.Contains(t, bus.eventTypes(), "OrderStatusChanged")
}
