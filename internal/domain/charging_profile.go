package domain

import (
	"time"
)

// ChargingProfile is a smart-charging profile installed on a station.
// The schedule is kept as raw JSON since its shape differs per OCPP version.
type ChargingProfile struct {
	ID            int    `json:"id" gorm:"primaryKey"`
	ChargePointID string `json:"charge_point_id" gorm:"index"`
	// EvseID 0 applies station-wide
	EvseID     int    `json:"evse_id"`
	ProfileID  int    `json:"profile_id"`
	StackLevel int    `json:"stack_level"`
	// TxDefaultProfile, TxProfile or ChargingStationMaxProfile
	Purpose string `json:"purpose"`
	// Absolute, Recurring or Relative
	Kind           string     `json:"kind"`
	RecurrencyKind *string    `json:"recurrency_kind,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidTo        *time.Time `json:"valid_to,omitempty"`
	ScheduleJSON   string     `json:"schedule_json"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Deactivate marks the profile as cleared from the station.
func (p *ChargingProfile) Deactivate() {
	p.IsActive = false
}
