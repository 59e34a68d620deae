package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type BillingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBillingRepository(db *gorm.DB, log *zap.Logger) ports.BillingRepository {
	return &BillingRepository{db: db, log: log}
}

func (r *BillingRepository) Save(ctx context.Context, billing *domain.TransactionBilling) error {
	result := r.db.WithContext(ctx).Create(billing)
	if result.Error != nil {
		r.log.Error("failed to save billing record",
			zap.Int("transaction_id", billing.TransactionID),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *BillingRepository) FindByTransactionID(ctx context.Context, transactionID int) (*domain.TransactionBilling, error) {
	var billing domain.TransactionBilling
	result := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&billing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("billing record", "transaction_id", transactionID)
		}
		return nil, result.Error
	}
	return &billing, nil
}

func (r *BillingRepository) UpdateStatus(ctx context.Context, id int, status domain.BillingStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.TransactionBilling{}).
		Where("id = ?", id).
		Update("status", status).Error
}
