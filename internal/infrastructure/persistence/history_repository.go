package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/ledger"
	"github.com/orderdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormHistoryRepository implements PaymentHistoryRepository using GORM.
// The table is append-only; the repository exposes no update or delete.
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Append persists a history entry
func (r *GormHistoryRepository) Append(ctx context.Context, entry *ledger.PaymentHistoryEntry) error {
	model := models.PaymentHistoryModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByPayment returns the entries for a payment, newest first
func (r *GormHistoryRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]ledger.PaymentHistoryEntry, error) {
	var historyModels []models.PaymentHistoryModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("changed_at DESC").
		Find(&historyModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.PaymentHistoryEntry, len(historyModels))
	for i, model := range historyModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// FindByOrder returns the entries for all payments of an order, newest first
func (r *GormHistoryRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ledger.PaymentHistoryEntry, error) {
	var historyModels []models.PaymentHistoryModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at DESC").
		Find(&historyModels).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.PaymentHistoryEntry, len(historyModels))
	for i, model := range historyModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormHistoryRepository implements PaymentHistoryRepository
var _ ledger.PaymentHistoryRepository = (*GormHistoryRepository)(nil)
