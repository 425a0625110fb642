package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOrderRepository_Integration tests the OrderRepository against a real PostgreSQL database
func TestOrderRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormOrderRepository(testDB.DB)
	ctx := context.Background()
	actor := uuid.New()

	t.Run("save and find by ID", func(t *testing.T) {
		order, err := ledger.NewOrder("ORD-1001", "Acme Corp", decimal.NewFromInt(500), nil, actor)
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, order))

		found, err := repo.FindByID(ctx, order.GetID())
		require.NoError(t, err)
		assert.Equal(t, "ORD-1001", found.OrderNumber)
		assert.Equal(t, "Acme Corp", found.CustomerName)
		assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(500)))
		assert.True(t, found.BalanceAmount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, ledger.PaymentStatusDue, found.PaymentStatus)
		require.NotNil(t, found.CreatedBy)
		assert.Equal(t, actor, *found.CreatedBy)
	})

	t.Run("find by order number", func(t *testing.T) {
		order, err := ledger.NewOrder("ORD-1002", "Beta LLC", decimal.NewFromInt(100), nil, actor)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, order))

		found, err := repo.FindByOrderNumber(ctx, "ORD-1002")
		require.NoError(t, err)
		assert.Equal(t, order.GetID(), found.GetID())

		_, err = repo.FindByOrderNumber(ctx, "ORD-NOPE")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("order number uniqueness", func(t *testing.T) {
		first, err := ledger.NewOrder("ORD-1003", "First", decimal.NewFromInt(10), nil, actor)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, first))

		exists, err := repo.ExistsByOrderNumber(ctx, "ORD-1003")
		require.NoError(t, err)
		assert.True(t, exists)

		dup, err := ledger.NewOrder("ORD-1003", "Second", decimal.NewFromInt(20), nil, actor)
		require.NoError(t, err)
		assert.Error(t, repo.Save(ctx, dup))
	})

	t.Run("optimistic lock rejects stale writes", func(t *testing.T) {
		order, err := ledger.NewOrder("ORD-1004", "Gamma Inc", decimal.NewFromInt(300), nil, actor)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, order))

		// Two readers load the same version
		copy1, err := repo.FindByID(ctx, order.GetID())
		require.NoError(t, err)
		copy2, err := repo.FindByID(ctx, order.GetID())
		require.NoError(t, err)

		require.NoError(t, copy1.ApplyPayment(decimal.NewFromInt(100)))
		copy1.IncrementVersion()
		require.NoError(t, repo.SaveWithLock(ctx, copy1))

		require.NoError(t, copy2.ApplyPayment(decimal.NewFromInt(50)))
		copy2.IncrementVersion()
		err = repo.SaveWithLock(ctx, copy2)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("filter by payment status with pagination", func(t *testing.T) {
		testDB.CleanTables()

		for i, total := range []int64{100, 200, 300} {
			order, err := ledger.NewOrder(
				fmt.Sprintf("ORD-20%02d", i), "Filter Co", decimal.NewFromInt(total), nil, actor)
			require.NoError(t, err)
			if i == 0 {
				require.NoError(t, order.ApplyPayment(decimal.NewFromInt(total)))
			}
			require.NoError(t, repo.Save(ctx, order))
		}

		paid := ledger.PaymentStatusPaid
		filter := ledger.OrderFilter{PaymentStatus: &paid}
		filter.Page = 1
		filter.PageSize = 10

		orders, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, ledger.PaymentStatusPaid, orders[0].PaymentStatus)

		count, err := repo.Count(ctx, ledger.OrderFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("overdue orders and balance sums", func(t *testing.T) {
		testDB.CleanTables()

		pastDue := time.Now().AddDate(0, 0, -10)
		overdueOrder, err := ledger.NewOrder("ORD-3001", "Late Payer", decimal.NewFromInt(400), &pastDue, actor)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, overdueOrder))

		futureDue := time.Now().AddDate(0, 0, 10)
		currentOrder, err := ledger.NewOrder("ORD-3002", "On Time", decimal.NewFromInt(600), &futureDue, actor)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, currentOrder))

		overdue, err := repo.FindOverdue(ctx, ledger.OrderFilter{})
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, "ORD-3001", overdue[0].OrderNumber)

		revenue, received, err := repo.SumTotals(ctx)
		require.NoError(t, err)
		assert.True(t, revenue.Equal(decimal.NewFromInt(1000)))
		assert.True(t, received.IsZero())

		pending, err := repo.SumPending(ctx)
		require.NoError(t, err)
		assert.True(t, pending.Equal(decimal.NewFromInt(1000)))

		overdueSum, err := repo.SumOverdue(ctx)
		require.NoError(t, err)
		assert.True(t, overdueSum.Equal(decimal.NewFromInt(400)))
	})

	t.Run("soft deleted orders are hidden", func(t *testing.T) {
		order, err := ledger.NewOrder("ORD-4001", "Gone Soon", decimal.NewFromInt(50), nil, actor)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, order))

		require.NoError(t, order.SoftDelete())
		require.NoError(t, repo.Save(ctx, order))

		_, err = repo.FindByID(ctx, order.GetID())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

// TestPaymentRepository_Integration tests payment persistence against PostgreSQL
func TestPaymentRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	orderRepo := persistence.NewGormOrderRepository(testDB.DB)
	paymentRepo := persistence.NewGormPaymentRepository(testDB.DB)
	ctx := context.Background()
	actor := uuid.New()

	order, err := ledger.NewOrder("ORD-5001", "Payer Ltd", decimal.NewFromInt(1000), nil, actor)
	require.NoError(t, err)
	require.NoError(t, orderRepo.Save(ctx, order))

	t.Run("save and list by order", func(t *testing.T) {
		first, err := ledger.NewPaymentTransaction(
			order.GetID(), decimal.NewFromInt(250), ledger.PaymentMethodCash,
			time.Now().Add(-2*time.Hour), nil, "first instalment", actor)
		require.NoError(t, err)
		require.NoError(t, paymentRepo.Save(ctx, first))

		second, err := ledger.NewPaymentTransaction(
			order.GetID(), decimal.NewFromInt(150), ledger.PaymentMethodUPI,
			time.Now(), nil, "second instalment", actor)
		require.NoError(t, err)
		require.NoError(t, paymentRepo.Save(ctx, second))

		payments, err := paymentRepo.FindByOrder(ctx, order.GetID())
		require.NoError(t, err)
		require.Len(t, payments, 2)
		// Newest first
		assert.True(t, payments[0].AmountPaid.Equal(decimal.NewFromInt(150)))
		assert.True(t, payments[1].AmountPaid.Equal(decimal.NewFromInt(250)))
	})

	t.Run("sum by order", func(t *testing.T) {
		sum, err := paymentRepo.SumByOrder(ctx, order.GetID())
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(400)))
	})

	t.Run("count since", func(t *testing.T) {
		count, err := paymentRepo.CountSince(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = paymentRepo.CountSince(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("soft deleted payments are excluded", func(t *testing.T) {
		payment, err := ledger.NewPaymentTransaction(
			order.GetID(), decimal.NewFromInt(100), ledger.PaymentMethodCard,
			time.Now(), nil, "", actor)
		require.NoError(t, err)
		require.NoError(t, paymentRepo.Save(ctx, payment))

		require.NoError(t, payment.MarkDeleted())
		require.NoError(t, paymentRepo.Save(ctx, payment))

		_, err = paymentRepo.FindByID(ctx, payment.GetID())
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		sum, err := paymentRepo.SumByOrder(ctx, order.GetID())
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(400)))
	})
}

// TestUnitOfWork_Integration verifies transactional all-or-nothing behavior
func TestUnitOfWork_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	uow := persistence.NewGormUnitOfWork(testDB.DB)
	orderRepo := persistence.NewGormOrderRepository(testDB.DB)
	paymentRepo := persistence.NewGormPaymentRepository(testDB.DB)
	historyRepo := persistence.NewGormHistoryRepository(testDB.DB)
	ctx := context.Background()
	actor := uuid.New()

	order, err := ledger.NewOrder("ORD-6001", "Txn Co", decimal.NewFromInt(500), nil, actor)
	require.NoError(t, err)
	require.NoError(t, orderRepo.Save(ctx, order))

	t.Run("commit writes payment, order and history together", func(t *testing.T) {
		err := uow.Execute(ctx, func(repos ledger.TxRepositories) error {
			loaded, err := repos.Orders.FindByID(ctx, order.GetID())
			if err != nil {
				return err
			}

			payment, err := ledger.NewPaymentTransaction(
				loaded.GetID(), decimal.NewFromInt(200), ledger.PaymentMethodBankTransfer,
				time.Now(), nil, "", actor)
			if err != nil {
				return err
			}
			if err := repos.Payments.Save(ctx, payment); err != nil {
				return err
			}

			if err := loaded.ApplyPayment(payment.AmountPaid); err != nil {
				return err
			}
			loaded.IncrementVersion()
			if err := repos.Orders.SaveWithLock(ctx, loaded); err != nil {
				return err
			}

			entry, err := ledger.NewCreateEntry(payment, actor, "")
			if err != nil {
				return err
			}
			return repos.History.Append(ctx, entry)
		})
		require.NoError(t, err)

		reloaded, err := orderRepo.FindByID(ctx, order.GetID())
		require.NoError(t, err)
		assert.True(t, reloaded.AmountReceived.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, ledger.PaymentStatusPartial, reloaded.PaymentStatus)

		entries, err := historyRepo.FindByOrder(ctx, order.GetID())
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("error rolls everything back", func(t *testing.T) {
		boom := errors.New("boom")
		err := uow.Execute(ctx, func(repos ledger.TxRepositories) error {
			payment, err := ledger.NewPaymentTransaction(
				order.GetID(), decimal.NewFromInt(100), ledger.PaymentMethodCash,
				time.Now(), nil, "", actor)
			if err != nil {
				return err
			}
			if err := repos.Payments.Save(ctx, payment); err != nil {
				return err
			}
			return boom
		})
		assert.True(t, errors.Is(err, boom))

		sum, err := paymentRepo.SumByOrder(ctx, order.GetID())
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.NewFromInt(200)))
	})
}
