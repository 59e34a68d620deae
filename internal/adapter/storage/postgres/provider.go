package postgres

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ocpp-central/internal/ports"
)

// Provider bundles the postgres-backed repositories behind
// ports.RepositoryProvider.
type Provider struct {
	chargePoints     ports.ChargePointRepository
	transactions     ports.TransactionRepository
	idTags           ports.IdTagRepository
	reservations     ports.ReservationRepository
	tariffs          ports.TariffRepository
	billing          ports.BillingRepository
	chargingProfiles ports.ChargingProfileRepository
}

func NewProvider(db *gorm.DB, log *zap.Logger) *Provider {
	return &Provider{
		chargePoints:     NewChargePointRepository(db, log),
		transactions:     NewTransactionRepository(db, log),
		idTags:           NewIdTagRepository(db, log),
		reservations:     NewReservationRepository(db, log),
		tariffs:          NewTariffRepository(db, log),
		billing:          NewBillingRepository(db, log),
		chargingProfiles: NewChargingProfileRepository(db, log),
	}
}

func (p *Provider) ChargePoints() ports.ChargePointRepository { return p.chargePoints }
func (p *Provider) Transactions() ports.TransactionRepository { return p.transactions }
func (p *Provider) IdTags() ports.IdTagRepository             { return p.idTags }
func (p *Provider) Reservations() ports.ReservationRepository { return p.reservations }
func (p *Provider) Tariffs() ports.TariffRepository           { return p.tariffs }
func (p *Provider) Billing() ports.BillingRepository          { return p.billing }
func (p *Provider) ChargingProfiles() ports.ChargingProfileRepository {
	return p.chargingProfiles
}
