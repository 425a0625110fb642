package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID, excluding soft-deleted orders
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds an order by its number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*ledger.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("order_number = ? AND deleted_at IS NULL", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds orders with filtering
func (r *GormOrderRepository) FindAll(ctx context.Context, filter ledger.OrderFilter) ([]ledger.Order, error) {
	var orderModels []models.OrderModel
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("deleted_at IS NULL")
	query = r.applyFilter(query, filter)

	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]ledger.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// FindOverdue finds orders with an unpaid balance past their due date
func (r *GormOrderRepository) FindOverdue(ctx context.Context, filter ledger.OrderFilter) ([]ledger.Order, error) {
	var orderModels []models.OrderModel
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("deleted_at IS NULL AND balance_amount > 0 AND due_date IS NOT NULL AND due_date < ?", time.Now())
	query = r.applyFilter(query, filter)

	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]ledger.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// Save creates or updates an order
func (r *GormOrderRepository) Save(ctx context.Context, order *ledger.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves the order with optimistic locking. The domain model has
// already incremented its version; the stored row must still carry the
// previous one or the save is rejected.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *ledger.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Get current version
		var current models.OrderModel
		if err := tx.Select("version").Where("id = ?", order.GetID()).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// New record, just save
				model := models.OrderModelFromDomain(order)
				return tx.Create(model).Error
			}
			return err
		}

		expectedVersion := order.GetVersion() - 1
		if current.Version != expectedVersion {
			return shared.ErrConcurrencyConflict
		}

		// Update with version check
		model := models.OrderModelFromDomain(order)
		result := tx.Model(model).
			Where("id = ? AND version = ?", order.GetID(), expectedVersion).
			Save(model)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter ledger.OrderFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("deleted_at IS NULL")
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByPaymentStatus counts orders per derived payment status
func (r *GormOrderRepository) CountByPaymentStatus(ctx context.Context) (map[ledger.PaymentStatus]int64, error) {
	var rows []struct {
		PaymentStatus ledger.PaymentStatus
		Count         int64
	}
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("payment_status, COUNT(*) as count").
		Where("deleted_at IS NULL").
		Group("payment_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[ledger.PaymentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.PaymentStatus] = row.Count
	}
	return counts, nil
}

// SumTotals returns total revenue and total received over non-deleted orders
func (r *GormOrderRepository) SumTotals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var result struct {
		Revenue  decimal.Decimal
		Received decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("COALESCE(SUM(total_amount), 0) as revenue, COALESCE(SUM(amount_received), 0) as received").
		Where("deleted_at IS NULL").
		Scan(&result).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return result.Revenue, result.Received, nil
}

// SumPending returns the outstanding balance across non-deleted orders
func (r *GormOrderRepository) SumPending(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("COALESCE(SUM(balance_amount), 0) as total").
		Where("deleted_at IS NULL AND balance_amount > 0").
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// SumOverdue returns the outstanding balance of overdue orders
func (r *GormOrderRepository) SumOverdue(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("COALESCE(SUM(balance_amount), 0) as total").
		Where("deleted_at IS NULL AND balance_amount > 0 AND due_date IS NOT NULL AND due_date < ?", time.Now()).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// ExistsByOrderNumber checks if an order number is already taken
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("order_number = ? AND deleted_at IS NULL", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to query
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter ledger.OrderFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply sorting with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

	// Apply pagination
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		offset := (filter.Page - 1) * filter.PageSize
		if offset > 0 {
			query = query.Offset(offset)
		}
	}

	return query
}

// applyFilterWithoutPagination applies filter conditions without pagination
func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.OrderFilter) *gorm.DB {
	// Search in order number and customer name
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("(order_number ILIKE ? OR customer_name ILIKE ?)", searchPattern, searchPattern)
	}

	// Fulfilment status filter
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	// Payment status filter
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}

	// Due date range filter
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", filter.DueTo)
	}

	// Overdue filter
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("balance_amount > 0 AND due_date IS NOT NULL AND due_date < ?", time.Now())
	}

	// Balance range filter
	if filter.MinBalance != nil {
		query = query.Where("balance_amount >= ?", *filter.MinBalance)
	}
	if filter.MaxBalance != nil {
		query = query.Where("balance_amount <= ?", *filter.MaxBalance)
	}

	return query
}

// Ensure GormOrderRepository implements OrderRepository
var _ ledger.OrderRepository = (*GormOrderRepository)(nil)
