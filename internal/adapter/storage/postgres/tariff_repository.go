package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type TariffRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTariffRepository(db *gorm.DB, log *zap.Logger) ports.TariffRepository {
	return &TariffRepository{db: db, log: log}
}

func (r *TariffRepository) Save(ctx context.Context, tariff *domain.Tariff) error {
	result := r.db.WithContext(ctx).Create(tariff)
	if result.Error != nil {
		r.log.Error("failed to save tariff",
			zap.String("name", tariff.Name),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *TariffRepository) FindByID(ctx context.Context, id int) (*domain.Tariff, error) {
	var tariff domain.Tariff
	result := r.db.WithContext(ctx).First(&tariff, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("tariff", "id", id)
		}
		return nil, result.Error
	}
	return &tariff, nil
}

func (r *TariffRepository) FindDefault(ctx context.Context) (*domain.Tariff, error) {
	var tariff domain.Tariff
	result := r.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&tariff)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("tariff", "is_default", true)
		}
		return nil, result.Error
	}
	return &tariff, nil
}

func (r *TariffRepository) FindAll(ctx context.Context, activeOnly bool) ([]domain.Tariff, error) {
	var tariffs []domain.Tariff
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if result := query.Order("id").Find(&tariffs); result.Error != nil {
		return nil, result.Error
	}
	return tariffs, nil
}

func (r *TariffRepository) Update(ctx context.Context, tariff *domain.Tariff) error {
	return r.db.WithContext(ctx).Save(tariff).Error
}

func (r *TariffRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&domain.Tariff{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("tariff", "id", id)
	}
	return nil
}
