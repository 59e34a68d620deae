package ports

import (
	"context"
	"time"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

type ChargePointRepository interface {
	Save(ctx context.Context, cp *domain.ChargePoint) error
	FindByID(ctx context.Context, id string) (*domain.ChargePoint, error)
	FindAll(ctx context.Context, filter map[string]interface{}) ([]domain.ChargePoint, error)
	UpdateStatus(ctx context.Context, id string, status domain.ChargePointStatus) error
	UpdateHeartbeat(ctx context.Context, id string, at time.Time) error
	UpdateConnectorStatus(ctx context.Context, id string, connector *domain.Connector) error
	Delete(ctx context.Context, id string) error
}

type TransactionRepository interface {
	Save(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id int) (*domain.Transaction, error)
	// FindByOcppID resolves the string transaction id used on OCPP 2.x wires
	FindByOcppID(ctx context.Context, ocppID string) (*domain.Transaction, error)
	FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Transaction, error)
	FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Transaction, error)
	FindActiveByIdTag(ctx context.Context, idTag string) ([]domain.Transaction, error)
	FindByChargePoint(ctx context.Context, chargePointID string, limit, offset int) ([]domain.Transaction, error)
	Update(ctx context.Context, tx *domain.Transaction) error
}

type IdTagRepository interface {
	Save(ctx context.Context, tag *domain.IdTag) error
	FindByTag(ctx context.Context, tag string) (*domain.IdTag, error)
	FindAll(ctx context.Context, limit, offset int) ([]domain.IdTag, error)
	Update(ctx context.Context, tag *domain.IdTag) error
	Delete(ctx context.Context, tag string) error
	TouchLastUsed(ctx context.Context, tag string, at time.Time) error
}

type ReservationRepository interface {
	Save(ctx context.Context, reservation *domain.Reservation) error
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	FindActiveByChargePoint(ctx context.Context, chargePointID string) ([]domain.Reservation, error)
	FindActiveByConnector(ctx context.Context, chargePointID string, connectorID int) (*domain.Reservation, error)
	FindOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	Update(ctx context.Context, reservation *domain.Reservation) error
}

type TariffRepository interface {
	Save(ctx context.Context, tariff *domain.Tariff) error
	FindByID(ctx context.Context, id int) (*domain.Tariff, error)
	FindDefault(ctx context.Context) (*domain.Tariff, error)
	FindAll(ctx context.Context, activeOnly bool) ([]domain.Tariff, error)
	Update(ctx context.Context, tariff *domain.Tariff) error
	Delete(ctx context.Context, id int) error
}

type BillingRepository interface {
	Save(ctx context.Context, billing *domain.TransactionBilling) error
	FindByTransactionID(ctx context.Context, transactionID int) (*domain.TransactionBilling, error)
	UpdateStatus(ctx context.Context, id int, status domain.BillingStatus) error
}

type ChargingProfileRepository interface {
	Save(ctx context.Context, profile *domain.ChargingProfile) error
	FindByChargePoint(ctx context.Context, chargePointID string, activeOnly bool) ([]domain.ChargingProfile, error)
	DeactivateByProfileID(ctx context.Context, chargePointID string, profileID int) error
	DeactivateAll(ctx context.Context, chargePointID string) error
}

// RepositoryProvider bundles all persistence ports behind one constructor
// so wiring swaps between postgres and in-memory backends in one place.
type RepositoryProvider interface {
	ChargePoints() ChargePointRepository
	Transactions() TransactionRepository
	IdTags() IdTagRepository
	Reservations() ReservationRepository
	Tariffs() TariffRepository
	Billing() BillingRepository
	ChargingProfiles() ChargingProfileRepository
}
