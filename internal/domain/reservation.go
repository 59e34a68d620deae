package domain

import (
	"time"
)

// ReservationStatus represents the status of a connector reservation
type ReservationStatus string

const (
	ReservationStatusAccepted  ReservationStatus = "Accepted"
	ReservationStatusCancelled ReservationStatus = "Cancelled"
	ReservationStatusExpired   ReservationStatus = "Expired"
	ReservationStatusUsed      ReservationStatus = "Used"
)

// Reservation holds a connector for an id tag until its expiry date.
// ConnectorID 0 reserves any connector on the station.
type Reservation struct {
	ID            int               `json:"id" gorm:"primaryKey"`
	ChargePointID string            `json:"charge_point_id" gorm:"index"`
	ConnectorID   int               `json:"connector_id"`
	IdTag         string            `json:"id_tag"`
	ParentIdTag   *string           `json:"parent_id_tag,omitempty"`
	ExpiryDate    time.Time         `json:"expiry_date" gorm:"index"`
	Status        ReservationStatus `json:"status" gorm:"index"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsActive returns true while the reservation still holds the connector.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusAccepted
}

// IsOverdue reports whether an accepted reservation is past its expiry date.
func (r *Reservation) IsOverdue(now time.Time) bool {
	return r.Status == ReservationStatusAccepted && now.After(r.ExpiryDate)
}

// Expire transitions an accepted reservation to Expired.
func (r *Reservation) Expire() {
	if r.Status == ReservationStatusAccepted {
		r.Status = ReservationStatusExpired
	}
}

// Cancel transitions an accepted reservation to Cancelled.
func (r *Reservation) Cancel() {
	if r.Status == ReservationStatusAccepted {
		r.Status = ReservationStatusCancelled
	}
}

// MarkUsed transitions an accepted reservation to Used once a transaction
// starts against it.
func (r *Reservation) MarkUsed() {
	if r.Status == ReservationStatusAccepted {
		r.Status = ReservationStatusUsed
	}
}
