package domain

import (
	"fmt"
	"time"
)

type TariffType string

const (
	TariffPerKwh     TariffType = "PerKwh"
	TariffPerMinute  TariffType = "PerMinute"
	TariffPerSession TariffType = "PerSession"
	TariffCombined   TariffType = "Combined"
)

type BillingStatus string

const (
	BillingStatusPending    BillingStatus = "Pending"
	BillingStatusCalculated BillingStatus = "Calculated"
	BillingStatusInvoiced   BillingStatus = "Invoiced"
	BillingStatusPaid       BillingStatus = "Paid"
	BillingStatusFailed     BillingStatus = "Failed"
)

// Tariff prices charging sessions. All monetary fields are in the smallest
// currency unit (cents, tiyin).
type Tariff struct {
	ID             int        `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	TariffType     TariffType `json:"tariff_type"`
	PricePerKwh    int        `json:"price_per_kwh"`
	PricePerMinute int        `json:"price_per_minute"`
	SessionFee     int        `json:"session_fee"`
	Currency       string     `json:"currency"`
	MinFee         int        `json:"min_fee"`
	// MaxFee 0 means no cap
	MaxFee     int        `json:"max_fee"`
	IsActive   bool       `json:"is_active"`
	IsDefault  bool       `json:"is_default"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CostBreakdown itemizes the cost of a session under a tariff.
type CostBreakdown struct {
	EnergyCost int    `json:"energy_cost"`
	TimeCost   int    `json:"time_cost"`
	SessionFee int    `json:"session_fee"`
	Subtotal   int    `json:"subtotal"`
	Total      int    `json:"total"`
	Currency   string `json:"currency"`
}

// FormatTotal renders the clamped total as "major.minor CUR".
func (b CostBreakdown) FormatTotal() string {
	return fmt.Sprintf("%d.%02d %s", b.Total/100, b.Total%100, b.Currency)
}

// TransactionBilling is the billing record for a completed transaction.
type TransactionBilling struct {
	ID              int           `json:"id" gorm:"primaryKey"`
	TransactionID   int           `json:"transaction_id" gorm:"uniqueIndex"`
	TariffID        *int          `json:"tariff_id,omitempty"`
	EnergyWh        int           `json:"energy_wh"`
	DurationSeconds int64         `json:"duration_seconds"`
	EnergyCost      int           `json:"energy_cost"`
	TimeCost        int           `json:"time_cost"`
	SessionFee      int           `json:"session_fee"`
	TotalCost       int           `json:"total_cost"`
	Currency        string        `json:"currency"`
	Status          BillingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CalculateCost returns the clamped total cost in minor units for the
// given consumption. Fractional component costs are truncated.
func (t *Tariff) CalculateCost(energyWh int, durationSeconds int64) int {
	energyKwh := float64(energyWh) / 1000.0
	durationMinutes := float64(durationSeconds) / 60.0

	var cost int
	switch t.TariffType {
	case TariffPerKwh:
		cost = int(energyKwh * float64(t.PricePerKwh))
	case TariffPerMinute:
		cost = int(durationMinutes * float64(t.PricePerMinute))
	case TariffPerSession:
		cost = t.SessionFee
	case TariffCombined:
		energyCost := int(energyKwh * float64(t.PricePerKwh))
		timeCost := int(durationMinutes * float64(t.PricePerMinute))
		cost = energyCost + timeCost + t.SessionFee
	}

	if cost < t.MinFee {
		cost = t.MinFee
	}
	if t.MaxFee > 0 && cost > t.MaxFee {
		cost = t.MaxFee
	}
	return cost
}

// CalculateCostBreakdown itemizes the cost. Component costs are always
// computed; the subtotal only sums the components the tariff type uses,
// and min/max clamping applies to the total only.
func (t *Tariff) CalculateCostBreakdown(energyWh int, durationSeconds int64) CostBreakdown {
	energyKwh := float64(energyWh) / 1000.0
	durationMinutes := float64(durationSeconds) / 60.0

	energyCost := int(energyKwh * float64(t.PricePerKwh))
	timeCost := int(durationMinutes * float64(t.PricePerMinute))
	sessionFee := t.SessionFee

	var subtotal int
	switch t.TariffType {
	case TariffPerKwh:
		subtotal = energyCost
	case TariffPerMinute:
		subtotal = timeCost
	case TariffPerSession:
		subtotal = sessionFee
	case TariffCombined:
		subtotal = energyCost + timeCost + sessionFee
	}

	total := subtotal
	if total < t.MinFee {
		total = t.MinFee
	}
	if t.MaxFee > 0 && total > t.MaxFee {
		total = t.MaxFee
	}

	return CostBreakdown{
		EnergyCost: energyCost,
		TimeCost:   timeCost,
		SessionFee: sessionFee,
		Subtotal:   subtotal,
		Total:      total,
		Currency:   t.Currency,
	}
}

// IsValid reports whether the tariff may be applied at the given time.
func (t *Tariff) IsValid(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	if t.ValidFrom != nil && now.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidUntil != nil && now.After(*t.ValidUntil) {
		return false
	}
	return true
}

// FormatCost renders an amount in minor units as "major.minor CUR".
func (t *Tariff) FormatCost(costCents int) string {
	return fmt.Sprintf("%d.%02d %s", costCents/100, costCents%100, t.Currency)
}
