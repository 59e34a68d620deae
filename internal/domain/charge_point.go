package domain

import (
	"time"
)

type ChargePointStatus string

const (
	ChargePointStatusOnline      ChargePointStatus = "Online"
	ChargePointStatusOffline     ChargePointStatus = "Offline"
	ChargePointStatusUnavailable ChargePointStatus = "Unavailable"
	ChargePointStatusUnknown     ChargePointStatus = "Unknown"
)

type ConnectorStatus string

const (
	ConnectorStatusAvailable     ConnectorStatus = "Available"
	ConnectorStatusPreparing     ConnectorStatus = "Preparing"
	ConnectorStatusCharging      ConnectorStatus = "Charging"
	ConnectorStatusSuspendedEV   ConnectorStatus = "SuspendedEV"
	ConnectorStatusSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	ConnectorStatusFinishing     ConnectorStatus = "Finishing"
	ConnectorStatusReserved      ConnectorStatus = "Reserved"
	ConnectorStatusUnavailable   ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted       ConnectorStatus = "Faulted"
)

// ChargePoint is a physical charging station known to the central system.
type ChargePoint struct {
	ID                string            `json:"id" gorm:"primaryKey"`
	OcppVersion       *OcppVersion      `json:"ocpp_version,omitempty"`
	Vendor            string            `json:"vendor"`
	Model             string            `json:"model"`
	SerialNumber      string            `json:"serial_number"`
	FirmwareVersion   string            `json:"firmware_version"`
	Iccid             string            `json:"iccid"`
	Imsi              string            `json:"imsi"`
	MeterType         string            `json:"meter_type"`
	MeterSerialNumber string            `json:"meter_serial_number"`
	Status            ChargePointStatus `json:"status"`
	Connectors        []Connector       `json:"connectors" gorm:"foreignKey:ChargePointID"`
	RegisteredAt      time.Time         `json:"registered_at"`
	LastHeartbeat     *time.Time        `json:"last_heartbeat,omitempty"`
	// bcrypt hash; empty means Basic-Auth is not enforced for this station
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Connector is a single outlet within a charge point. Connector ids start
// at 1; id 0 addresses the station as a whole and is never stored.
type Connector struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	ChargePointID   string          `json:"charge_point_id" gorm:"uniqueIndex:idx_connector_cp"`
	ConnectorID     int             `json:"connector_id" gorm:"uniqueIndex:idx_connector_cp"`
	Status          ConnectorStatus `json:"status"`
	ErrorCode       string          `json:"error_code"`
	ErrorInfo       string          `json:"error_info"`
	VendorErrorCode string          `json:"vendor_error_code"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SetOnline marks the station online and refreshes its heartbeat timestamp.
func (cp *ChargePoint) SetOnline(now time.Time) {
	cp.Status = ChargePointStatusOnline
	cp.LastHeartbeat = &now
}

// Connector returns the connector with the given 1-based id, or nil.
func (cp *ChargePoint) Connector(connectorID int) *Connector {
	for i := range cp.Connectors {
		if cp.Connectors[i].ConnectorID == connectorID {
			return &cp.Connectors[i]
		}
	}
	return nil
}

// EnsureConnectors guarantees connectors 1..n exist, creating missing ones
// as Available. Existing connectors are left untouched.
func (cp *ChargePoint) EnsureConnectors(n int) {
	for id := 1; id <= n; id++ {
		if cp.Connector(id) == nil {
			cp.Connectors = append(cp.Connectors, Connector{
				ChargePointID: cp.ID,
				ConnectorID:   id,
				Status:        ConnectorStatusAvailable,
			})
		}
	}
}
