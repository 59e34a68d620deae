package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type ReservationRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReservationRepository(db *gorm.DB, log *zap.Logger) ports.ReservationRepository {
	return &ReservationRepository{db: db, log: log}
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	result := r.db.WithContext(ctx).Create(reservation)
	if result.Error != nil {
		r.log.Error("failed to save reservation",
			zap.String("charge_point_id", reservation.ChargePointID),
			zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	var res domain.Reservation
	result := r.db.WithContext(ctx).First(&res, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundError("reservation", "id", id)
		}
		return nil, result.Error
	}
	return &res, nil
}

func (r *ReservationRepository) FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	result := r.db.WithContext(ctx).
		Where("charge_point_id = ? AND status = ?", chargePointID, domain.ReservationStatusAccepted).
		Find(&reservations)
	if result.Error != nil {
		return nil, result.Error
	}
	return reservations, nil
}

func (r *ReservationRepository) FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Reservation, error) {
	var res domain.Reservation
	result := r.db.WithContext(ctx).
		Where("charge_point_id = ? AND connector_id = ? AND status = ?",
			chargePointID, connectorID, domain.ReservationStatusAccepted).
		First(&res)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &res, nil
}

func (r *ReservationRepository) FindOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	result := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date < ?", domain.ReservationStatusAccepted, now).
		Find(&reservations)
	if result.Error != nil {
		return nil, result.Error
	}
	return reservations, nil
}

func (r *ReservationRepository) Update(ctx context.Context, reservation *domain.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}
