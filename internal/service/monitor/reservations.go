package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// ReservationExpiry marks overdue reservations as Expired on a fixed
// interval.
type ReservationExpiry struct {
	reservations ports.ReservationRepository
	bus          *events.Bus
	interval     time.Duration
	logger       *zap.Logger
}

func NewReservationExpiry(reservations ports.ReservationRepository, bus *events.Bus, logger *zap.Logger) *ReservationExpiry {
	return &ReservationExpiry{
		reservations: reservations,
		bus:          bus,
		interval:     60 * time.Second,
		logger:       logger,
	}
}

// WithInterval overrides the default 60 s check interval.
func (r *ReservationExpiry) WithInterval(interval time.Duration) *ReservationExpiry {
	if interval > 0 {
		r.interval = interval
	}
	return r
}

// Run loops until the context is cancelled. Call it in its own goroutine.
func (r *ReservationExpiry) Run(ctx context.Context) {
	r.logger.Info("reservation expiry task started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.ExpireOnce(ctx); err != nil {
				r.logger.Warn("reservation expiry check failed", zap.Error(err))
			}
		case <-ctx.Done():
			r.logger.Info("reservation expiry task stopped")
			return
		}
	}
}

// ExpireOnce runs a single expiry pass.
func (r *ReservationExpiry) ExpireOnce(ctx context.Context) error {
	now := time.Now().UTC()
	overdue, err := r.reservations.FindOverdue(ctx, now)
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}

	r.logger.Info("expiring overdue reservations", zap.Int("count", len(overdue)))

	for i := range overdue {
		res := &overdue[i]
		res.Expire()
		if err := r.reservations.Update(ctx, res); err != nil {
			r.logger.Warn("reservation expiry update failed",
				zap.Int("reservation_id", res.ID),
				zap.Error(err))
			continue
		}
		r.bus.Publish(events.ReservationExpired{
			ChargePointID: res.ChargePointID,
			ReservationID: res.ID,
			ConnectorID:   res.ConnectorID,
			IdTag:         res.IdTag,
			Timestamp:     now,
		})
	}
	return nil
}
