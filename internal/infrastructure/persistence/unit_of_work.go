package persistence

import (
	"context"

	"github.com/orderdesk/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormUnitOfWork executes ledger mutations inside a single database
// transaction. The payment row, the order aggregate update and the history
// append either all commit or all roll back.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn with repositories bound to one transaction. Returning an
// error from fn rolls the transaction back.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos ledger.TxRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := ledger.TxRepositories{
			Orders:   NewGormOrderRepository(tx),
			Payments: NewGormPaymentRepository(tx),
			History:  NewGormHistoryRepository(tx),
		}
		return fn(repos)
	})
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ ledger.UnitOfWork = (*GormUnitOfWork)(nil)
