package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type ChargePointRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewChargePointRepository(db *gorm.DB, log *zap.Logger) ports.ChargePointRepository {
	return &ChargePointRepository{db: db, log: log}
}

func (r *ChargePointRepository) Save(ctx context.Context, cp *domain.ChargePoint) error {
	result := r.db.WithContext(ctx).Save(cp)
	if result.Error != nil {
		r.log.Error("failed to save charge point",
			zap.String("charge_point_id", cp.ID),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *ChargePointRepository) FindByID(ctx context.Context, id string) (*domain.ChargePoint, error) {
	var cp domain.ChargePoint
	result := r.db.WithContext(ctx).Preload("Connectors").First(&cp, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("charge point", "id", id)
		}
		return nil, result.Error
	}
	return &cp, nil
}

func (r *ChargePointRepository) FindAll(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error) {
	var cps []domain.ChargePoint
	query := r.db.WithContext(ctx).Preload("Connectors")
	if status, ok := filter["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if vendor, ok := filter["vendor"]; ok {
		query = query.Where("vendor = ?", vendor)
	}
	if result := query.Find(&cps); result.Error != nil {
		return nil, result.Error
	}
	return cps, nil
}

func (r *ChargePointRepository) UpdateStatus(ctx context.Context, id string, status domain.ChargePointStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChargePoint{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *ChargePointRepository) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChargePoint{}).
		Where("id = ?", id).
		Update("last_heartbeat", at).Error
}

func (r *ChargePointRepository) UpdateConnectorStatus(ctx context.Context, id string, connector *domain.Connector) error {
	connector.ChargePointID = id
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "charge_point_id"}, {Name: "connector_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "error_code", "error_info", "vendor_error_code", "updated_at",
			}),
		}).
		Create(connector).Error
}

func (r *ChargePointRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.ChargePoint{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("charge point", "id", id)
	}
	return nil
}
