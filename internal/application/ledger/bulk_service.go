package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const defaultBulkWorkers = 4

// BulkService applies an operation to many orders with per-item isolation.
// Each item commits in its own transaction, so one bad item never rolls back
// its siblings.
type BulkService struct {
	uow     ledger.UnitOfWork
	workers int
	logger  *zap.Logger
}

// NewBulkService creates a bulk service. workers bounds the number of items
// processed concurrently; zero or negative falls back to the default.
func NewBulkService(uow ledger.UnitOfWork, workers int, logger *zap.Logger) *BulkService {
	if workers <= 0 {
		workers = defaultBulkWorkers
	}
	return &BulkService{
		uow:     uow,
		workers: workers,
		logger:  logger,
	}
}

// itemOutcome carries one item's result back from a worker
type itemOutcome struct {
	id     uuid.UUID
	code   string
	errMsg string
}

// BulkUpdateStatus sets the fulfilment status on each order in ids. The
// status is validated once up front; a bad status fails the whole request
// before any item is touched.
func (s *BulkService) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status ledger.OrderStatus) (*BulkResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_bulk", "update_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBatchSize, len(ids),
		telemetry.SpanAttrOrderStatus, string(status))

	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "invalid order status: "+string(status))
	}
	if len(ids) == 0 {
		return nil, shared.NewDomainError("EMPTY_BATCH", "bulk operation requires at least one order ID")
	}

	return s.run(ctx, ids, func(ctx context.Context, repos ledger.TxRepositories, id uuid.UUID) error {
		order, err := repos.Orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := order.UpdateStatus(status); err != nil {
			return err
		}
		return repos.Orders.SaveWithLock(ctx, order)
	})
}

// BulkSoftDelete soft-deletes each order in ids. Deleted orders keep their
// payment and history rows for audit.
func (s *BulkService) BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*BulkResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_bulk", "soft_delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrBatchSize, len(ids))

	if len(ids) == 0 {
		return nil, shared.NewDomainError("EMPTY_BATCH", "bulk operation requires at least one order ID")
	}

	return s.run(ctx, ids, func(ctx context.Context, repos ledger.TxRepositories, id uuid.UUID) error {
		order, err := repos.Orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := order.SoftDelete(); err != nil {
			return err
		}
		return repos.Orders.SaveWithLock(ctx, order)
	})
}

// run fans ids out over a bounded worker pool. Cancellation stops dispatch;
// items already committed stay committed and undispatched items are reported
// as failed with a CANCELLED code.
func (s *BulkService) run(ctx context.Context, ids []uuid.UUID, fn func(ctx context.Context, repos ledger.TxRepositories, id uuid.UUID) error) (*BulkResult, error) {
	jobs := make(chan uuid.UUID)
	outcomes := make(chan itemOutcome, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				outcomes <- s.processOne(ctx, id, fn)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, id := range ids {
		select {
		case jobs <- id:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	result := &BulkResult{Succeeded: make([]uuid.UUID, 0, len(ids))}
	seen := make(map[uuid.UUID]bool, dispatched)
	for outcome := range outcomes {
		seen[outcome.id] = true
		if outcome.code == "" {
			result.Succeeded = append(result.Succeeded, outcome.id)
		} else {
			result.Failed = append(result.Failed, BulkFailure{
				ID:      outcome.id,
				Code:    outcome.code,
				Message: outcome.errMsg,
			})
		}
	}
	for _, id := range ids {
		if !seen[id] {
			result.Failed = append(result.Failed, BulkFailure{
				ID:      id,
				Code:    "CANCELLED",
				Message: "bulk operation cancelled before item was processed",
			})
		}
	}

	if result.HasFailures() {
		s.logger.Warn("bulk operation completed with failures",
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failed)))
	}
	return result, nil
}

func (s *BulkService) processOne(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, repos ledger.TxRepositories, id uuid.UUID) error) itemOutcome {
	var err error
	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := conflictRetryBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return itemOutcome{id: id, code: "CANCELLED", errMsg: ctx.Err().Error()}
			}
		}
		err = s.uow.Execute(ctx, func(repos ledger.TxRepositories) error {
			return fn(ctx, repos, id)
		})
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			break
		}
	}
	if err == nil {
		return itemOutcome{id: id}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return itemOutcome{id: id, code: domainErr.Code, errMsg: domainErr.Message}
	}
	return itemOutcome{id: id, code: "INTERNAL_ERROR", errMsg: err.Error()}
}
