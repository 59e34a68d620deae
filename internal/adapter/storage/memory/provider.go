// Package memory provides an in-process RepositoryProvider used by tests
// and by dev mode when no database is configured. All stores are guarded
// by a single mutex per repository and copy values on the way in and out.
package memory

import (
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type Provider struct {
	chargePoints     *ChargePointRepository
	transactions     *TransactionRepository
	idTags           *IdTagRepository
	reservations     *ReservationRepository
	tariffs          *TariffRepository
	billing          *BillingRepository
	chargingProfiles *ChargingProfileRepository
}

func NewProvider() *Provider {
	return &Provider{
		chargePoints:     NewChargePointRepository(),
		transactions:     NewTransactionRepository(),
		idTags:           NewIdTagRepository(),
		reservations:     NewReservationRepository(),
		tariffs:          NewTariffRepository(),
		billing:          NewBillingRepository(),
		chargingProfiles: NewChargingProfileRepository(),
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
