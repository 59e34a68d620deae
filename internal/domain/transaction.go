package domain

import (
	"time"
)

type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "Active"
	TransactionStatusCompleted TransactionStatus = "Completed"
	TransactionStatusFailed    TransactionStatus = "Failed"
)

// LimitType constrains a running transaction. When the limit is reached the
// central system issues a remote stop.
type LimitType string

const (
	LimitTypeEnergy LimitType = "energy" // kWh
	LimitTypeAmount LimitType = "amount" // minor currency units
	LimitTypeSoc    LimitType = "soc"    // percent
)

// ChargingLimit is a cap staked on a transaction before or at start.
type ChargingLimit struct {
	Type  LimitType `json:"type"`
	Value float64   `json:"value"`
}

// Transaction is a single charging session bounded by start and stop.
type Transaction struct {
	ID            int        `json:"id" gorm:"primaryKey"`
	ChargePointID string     `json:"charge_point_id" gorm:"index"`
	ConnectorID   int        `json:"connector_id"`
	IdTag         string     `json:"id_tag"`
	MeterStart    int        `json:"meter_start"` // Wh
	MeterStop     *int       `json:"meter_stop,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
	StopReason    string     `json:"stop_reason,omitempty"`

	Status TransactionStatus `json:"status"`

	// Live meter data, updated by MeterValues / TransactionEvent(Updated)
	LastMeterValue  *int       `json:"last_meter_value,omitempty"`
	CurrentPowerW   *float64   `json:"current_power_w,omitempty"`
	CurrentSoc      *float64   `json:"current_soc,omitempty"`
	LastMeterUpdate *time.Time `json:"last_meter_update,omitempty"`

	LimitType  *LimitType `json:"limit_type,omitempty"`
	LimitValue *float64   `json:"limit_value,omitempty"`

	ExternalOrderID *string `json:"external_order_id,omitempty"`

	// Wire-level transaction id for OCPP 2.0.1 sessions (string on the wire,
	// mapped to the local integer id via this column).
	OcppTransactionID string `json:"ocpp_transaction_id,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Transaction) IsActive() bool {
	return t.StoppedAt == nil
}

// Stop terminates the transaction. Calling it on an already stopped
// transaction is a no-op.
func (t *Transaction) Stop(meterStop int, reason string, at time.Time) {
	if !t.IsActive() {
		return
	}
	t.MeterStop = &meterStop
	t.StoppedAt = &at
	t.StopReason = reason
	t.Status = TransactionStatusCompleted
}

// EnergyConsumedWh is meter_stop - meter_start for a completed transaction,
// or the live consumption for an active one.
func (t *Transaction) EnergyConsumedWh() int {
	if t.MeterStop != nil {
		return *t.MeterStop - t.MeterStart
	}
	if t.LastMeterValue != nil {
		return *t.LastMeterValue - t.MeterStart
	}
	return 0
}

// LiveEnergyConsumedKwh is the energy consumed so far in kWh.
func (t *Transaction) LiveEnergyConsumedKwh() float64 {
	return float64(t.EnergyConsumedWh()) / 1000.0
}

// DurationSeconds is the session duration, using now for active sessions.
func (t *Transaction) DurationSeconds(now time.Time) int64 {
	end := now
	if t.StoppedAt != nil {
		end = *t.StoppedAt
	}
	return int64(end.Sub(t.StartedAt).Seconds())
}

// UpdateMeter records a live meter sample.
func (t *Transaction) UpdateMeter(energyWh *int, powerW, soc *float64, at time.Time) {
	if energyWh != nil {
		t.LastMeterValue = energyWh
	}
	if powerW != nil {
		t.CurrentPowerW = powerW
	}
	if soc != nil {
		t.CurrentSoc = soc
	}
	t.LastMeterUpdate = &at
}
