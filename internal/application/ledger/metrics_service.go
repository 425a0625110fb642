package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MetricsCache stores computed snapshots for a short TTL so dashboard polling
// does not hammer the aggregate queries
type MetricsCache interface {
	Get(ctx context.Context, key string) (*MetricsSnapshot, bool)
	Set(ctx context.Context, key string, snapshot *MetricsSnapshot)
}

// MetricsService computes dashboard rollups over the ledger
type MetricsService struct {
	orders   ledger.OrderRepository
	payments ledger.PaymentTransactionRepository
	cache    MetricsCache
	logger   *zap.Logger
}

// NewMetricsService creates a metrics service. cache may be nil to disable
// snapshot caching.
func NewMetricsService(
	orders ledger.OrderRepository,
	payments ledger.PaymentTransactionRepository,
	cache MetricsCache,
	logger *zap.Logger,
) *MetricsService {
	return &MetricsService{
		orders:   orders,
		payments: payments,
		cache:    cache,
		logger:   logger,
	}
}

// GetSnapshot returns the dashboard rollup for the trailing periodDays window.
// periodDays applies to the recent payment count; the balance figures are
// always computed over the whole ledger.
func (s *MetricsService) GetSnapshot(ctx context.Context, periodDays int) (*MetricsSnapshot, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_metrics", "snapshot")
	defer span.End()

	if periodDays <= 0 {
		periodDays = 30
	}
	key := fmt.Sprintf("metrics:snapshot:%d", periodDays)
	if s.cache != nil {
		if snapshot, ok := s.cache.Get(ctx, key); ok {
			return snapshot, nil
		}
	}

	filter := ledger.OrderFilter{}
	revenue, received, err := s.orders.SumTotals(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.orders.SumPending(ctx)
	if err != nil {
		return nil, err
	}
	overdue, err := s.orders.SumOverdue(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.orders.CountByPaymentStatus(ctx)
	if err != nil {
		return nil, err
	}
	orderCount, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -periodDays)
	recentPayments, err := s.payments.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}

	average := decimal.Zero
	if orderCount > 0 {
		average = revenue.Div(decimal.NewFromInt(orderCount)).Round(2)
	}

	snapshot := &MetricsSnapshot{
		TotalRevenue:       revenue,
		TotalReceived:      received,
		PendingAmount:      pending,
		OverdueAmount:      overdue,
		CountsByStatus:     counts,
		OrderCount:         orderCount,
		AverageOrderValue:  average,
		RecentPaymentCount: recentPayments,
		PeriodDays:         periodDays,
		GeneratedAt:        time.Now().UTC(),
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, snapshot)
	}
	return snapshot, nil
}
