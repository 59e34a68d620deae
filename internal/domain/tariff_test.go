package domain

import (
	"testing"
	"time"
)

func sampleTariff(tt TariffType) *Tariff {
	now := time.Now().UTC()
	return &Tariff{
		ID:             1,
		Name:           "Test",
		TariffType:     tt,
		PricePerKwh:    500, // 5.00 per kWh
		PricePerMinute: 10,  // 0.10 per minute
		SessionFee:     100, // 1.00 flat
		Currency:       "UZS",
		IsActive:       true,
		IsDefault:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCalculateCost_PerKwh(t *testing.T) {
	tariff := sampleTariff(TariffPerKwh)
	// 10 kWh -> 10 * 500 = 5000
	if got := tariff.CalculateCost(10_000, 3600); got != 5000 {
		t.Errorf("expected 5000, got %d", got)
	}
}

func TestCalculateCost_PerMinute(t *testing.T) {
	tariff := sampleTariff(TariffPerMinute)
	// 60 minutes -> 60 * 10 = 600
	if got := tariff.CalculateCost(0, 3600); got != 600 {
		t.Errorf("expected 600, got %d", got)
	}
}

func TestCalculateCost_PerSession(t *testing.T) {
	tariff := sampleTariff(TariffPerSession)
	if got := tariff.CalculateCost(50_000, 7200); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestCalculateCost_Combined(t *testing.T) {
	tariff := sampleTariff(TariffCombined)
	// energy 5000 + time 600 + session 100 = 5700
	if got := tariff.CalculateCost(10_000, 3600); got != 5700 {
		t.Errorf("expected 5700, got %d", got)
	}
}

func TestCalculateCost_MinFeeEnforced(t *testing.T) {
	tariff := sampleTariff(TariffPerKwh)
	tariff.MinFee = 1000
	if got := tariff.CalculateCost(0, 0); got != 1000 {
		t.Errorf("expected 1000, got %d", got)
	}
}

func TestCalculateCost_MaxFeeEnforced(t *testing.T) {
	tariff := sampleTariff(TariffCombined)
	tariff.MaxFee = 2000
	if got := tariff.CalculateCost(10_000, 3600); got != 2000 {
		t.Errorf("expected 2000, got %d", got)
	}
}

func TestCalculateCost_MaxFeeZeroMeansUnlimited(t *testing.T) {
	tariff := sampleTariff(TariffPerKwh)
	tariff.MaxFee = 0
	if got := tariff.CalculateCost(100_000, 0); got != 50_000 {
		t.Errorf("expected 50000, got %d", got)
	}
}

func TestCalculateCostBreakdown_Combined(t *testing.T) {
	tariff := sampleTariff(TariffCombined)
	bd := tariff.CalculateCostBreakdown(10_000, 3600)
	if bd.EnergyCost != 5000 {
		t.Errorf("expected energy cost 5000, got %d", bd.EnergyCost)
	}
	if bd.TimeCost != 600 {
		t.Errorf("expected time cost 600, got %d", bd.TimeCost)
	}
	if bd.SessionFee != 100 {
		t.Errorf("expected session fee 100, got %d", bd.SessionFee)
	}
	if bd.Subtotal != 5700 {
		t.Errorf("expected subtotal 5700, got %d", bd.Subtotal)
	}
	if bd.Total != 5700 {
		t.Errorf("expected total 5700, got %d", bd.Total)
	}
	if bd.Currency != "UZS" {
		t.Errorf("expected currency UZS, got %s", bd.Currency)
	}
}

func TestCalculateCostBreakdown_PerKwhIgnoresOtherComponents(t *testing.T) {
	tariff := sampleTariff(TariffPerKwh)
	bd := tariff.CalculateCostBreakdown(10_000, 3600)
	// components are itemized but only the energy cost counts
	if bd.TimeCost != 600 {
		t.Errorf("expected time cost 600, got %d", bd.TimeCost)
	}
	if bd.Subtotal != 5000 {
		t.Errorf("expected subtotal 5000, got %d", bd.Subtotal)
	}
}

func TestCostBreakdown_FormatTotal(t *testing.T) {
	tariff := sampleTariff(TariffPerKwh)
	bd := tariff.CalculateCostBreakdown(10_000, 3600)
	if got := bd.FormatTotal(); got != "50.00 UZS" {
		t.Errorf("expected '50.00 UZS', got '%s'", got)
	}
}

func TestFormatCost(t *testing.T) {
	tariff := sampleTariff(TariffPerKwh)
	if got := tariff.FormatCost(12345); got != "123.45 UZS" {
		t.Errorf("expected '123.45 UZS', got '%s'", got)
	}
	if got := tariff.FormatCost(0); got != "0.00 UZS" {
		t.Errorf("expected '0.00 UZS', got '%s'", got)
	}
}

func TestTariffIsValid(t *testing.T) {
	now := time.Now().UTC()

	tariff := sampleTariff(TariffPerKwh)
	if !tariff.IsValid(now) {
		t.Error("expected active tariff without dates to be valid")
	}

	tariff.IsActive = false
	if tariff.IsValid(now) {
		t.Error("expected inactive tariff to be invalid")
	}

	tariff = sampleTariff(TariffPerKwh)
	future := now.Add(time.Hour)
	tariff.ValidFrom = &future
	if tariff.IsValid(now) {
		t.Error("expected tariff with future valid_from to be invalid")
	}

	tariff = sampleTariff(TariffPerKwh)
	past := now.Add(-time.Hour)
	tariff.ValidUntil = &past
	if tariff.IsValid(now) {
		t.Error("expected tariff with past valid_until to be invalid")
	}
}
