package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type TransactionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTransactionRepository(db *gorm.DB, log *zap.Logger) ports.TransactionRepository {
	return &TransactionRepository{db: db, log: log}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	result := r.db.WithContext(ctx).Create(tx)
	if result.Error != nil {
		r.log.Error("failed to save transaction",
			zap.String("charge_point_id", tx.ChargePointID),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int) (*domain.Transaction, error) {
	var tx domain.Transaction
	result := r.db.WithContext(ctx).First(&tx, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("transaction", "id", id)
		}
		return nil, result.Error
	}
	return &tx, nil
}

func (r *TransactionRepository) FindByOcppID(ctx context.Context, ocppID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	result := r.db.WithContext(ctx).
		Where("ocpp_transaction_id = ?", ocppID).
		Order("id DESC").
		First(&tx)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("transaction", "ocpp_transaction_id", ocppID)
		}
		return nil, result.Error
	}
	return &tx, nil
}

func (r *TransactionRepository) FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	result := r.db.WithContext(ctx).
		Where("charge_point_id = ? AND status = ?", chargePointID, domain.TransactionStatusActive).
		Find(&txs)
	if result.Error != nil {
		return nil, result.Error
	}
	return txs, nil
}

func (r *TransactionRepository) FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Transaction, error) {
	var tx domain.Transaction
	result := r.db.WithContext(ctx).
		Where("charge_point_id = ? AND connector_id = ? AND status = ?",
			chargePointID, connectorID, domain.TransactionStatusActive).
		First(&tx)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &tx, nil
}

func (r *TransactionRepository) FindActiveByIdTag(ctx context.Context, idTag string) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	result := r.db.WithContext(ctx).
		Where("id_tag = ? AND status = ?", idTag, domain.TransactionStatusActive).
		Find(&txs)
	if result.Error != nil {
		return nil, result.Error
	}
	return txs, nil
}

func (r *TransactionRepository) FindByChargePoint(ctx context.Context, chargePointID string, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txs []domain.Transaction
	result := r.db.WithContext(ctx).
		Where("charge_point_id = ?", chargePointID).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs)
	if result.Error != nil {
		return nil, result.Error
	}
	return txs, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}
