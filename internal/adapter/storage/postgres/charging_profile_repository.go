package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type ChargingProfileRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewChargingProfileRepository(db *gorm.DB, log *zap.Logger) ports.ChargingProfileRepository {
	return &ChargingProfileRepository{db: db, log: log}
}

func (r *ChargingProfileRepository) Save(ctx context.Context, profile *domain.ChargingProfile) error {
	result := r.db.WithContext(ctx).Create(profile)
	if result.Error != nil {
		r.log.Error("failed to save charging profile",
			zap.String("charge_point_id", profile.ChargePointID),
			zap.Int("profile_id", profile.ProfileID),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *ChargingProfileRepository) FindByChargePoint(ctx context.Context, chargePointID string, activeOnly bool) ([]domain.ChargingProfile, error) {
	var profiles []domain.ChargingProfile
	query := r.db.WithContext(ctx).Where("charge_point_id = ?", chargePointID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if result := query.Order("stack_level DESC").Find(&profiles); result.Error != nil {
		return nil, result.Error
	}
	return profiles, nil
}

func (r *ChargingProfileRepository) DeactivateByProfileID(ctx context.Context, chargePointID string, profileID int) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChargingProfile{}).
		Where("charge_point_id = ? AND profile_id = ?", chargePointID, profileID).
		Update("is_active", false).Error
}

func (r *ChargingProfileRepository) DeactivateAll(ctx context.Context, chargePointID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChargingProfile{}).
		Where("charge_point_id = ?", chargePointID).
		Update("is_active", false).Error
}
