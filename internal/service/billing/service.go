package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

// Service turns completed transactions into billing records using the
// transaction's tariff or the default one.
type Service struct {
	tariffs ports.TariffRepository
	billing ports.BillingRepository
	bus     *events.Bus
	logger  *zap.Logger
}

func NewService(tariffs ports.TariffRepository, billing ports.BillingRepository, bus *events.Bus, logger *zap.Logger) *Service {
	return &Service{
		tariffs: tariffs,
		billing: billing,
		bus:     bus,
		logger:  logger,
	}
}

func (s *Service) tariffFor(ctx context.Context) (*domain.Tariff, error) {
	tariff, err := s.tariffs.FindDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving default tariff: %w", err)
	}
	return tariff, nil
}

// BillTransaction computes and persists the billing record for a stopped
// transaction and publishes TransactionBilled. Calling it again for the
// same transaction returns the existing record.
func (s *Service) BillTransaction(ctx context.Context, tx *domain.Transaction) (*domain.TransactionBilling, error) {
	if existing, err := s.billing.FindByTransactionID(ctx, tx.ID); err == nil && existing != nil {
		return existing, nil
	}

	tariff, err := s.tariffFor(ctx)
	if err != nil {
		return nil, err
	}

	energyWh := tx.EnergyConsumedWh()
	duration := tx.DurationSeconds(time.Now().UTC())
	breakdown := tariff.CalculateCostBreakdown(energyWh, duration)

	tariffID := tariff.ID
	record := &domain.TransactionBilling{
		TransactionID:   tx.ID,
		TariffID:        &tariffID,
		EnergyWh:        energyWh,
		DurationSeconds: duration,
		EnergyCost:      breakdown.EnergyCost,
		TimeCost:        breakdown.TimeCost,
		SessionFee:      breakdown.SessionFee,
		TotalCost:       breakdown.Total,
		Currency:        breakdown.Currency,
		Status:          domain.BillingStatusCalculated,
	}

	if err := s.billing.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("saving billing record: %w", err)
	}

	s.logger.Info("transaction billed",
		zap.Int("transaction_id", tx.ID),
		zap.Int("energy_wh", energyWh),
		zap.Int("total_cost", breakdown.Total),
		zap.String("currency", breakdown.Currency))

	s.bus.Publish(events.TransactionBilled{
		ChargePointID: tx.ChargePointID,
		TransactionID: tx.ID,
		EnergyWh:      energyWh,
		TotalCost:     breakdown.Total,
		Currency:      breakdown.Currency,
		Timestamp:     time.Now().UTC(),
	})

	return record, nil
}

// CostBreakdown prices a transaction without persisting anything, used for
// live cost display and amount-limit checks.
func (s *Service) CostBreakdown(ctx context.Context, tx *domain.Transaction) (*domain.CostBreakdown, error) {
	tariff, err := s.tariffFor(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := tariff.CalculateCostBreakdown(tx.EnergyConsumedWh(), tx.DurationSeconds(time.Now().UTC()))
	return &breakdown, nil
}
