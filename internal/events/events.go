package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a notification emitted by the central system. Implementations
// are plain structs so they marshal directly to JSON.
type Event interface {
	EventType() string
	ChargePoint() string
}

// Envelope wraps an event with delivery metadata.
type Envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Event     `json:"data"`
}

// NewEnvelope stamps an event with a uuid and the current time.
func NewEnvelope(e Event) Envelope {
	return Envelope{
		ID:        uuid.New().String(),
		Type:      e.EventType(),
		Timestamp: time.Now().UTC(),
		Data:      e,
	}
}

type ChargePointConnected struct {
	ChargePointID string    `json:"charge_point_id"`
	RemoteAddr    string    `json:"remote_addr,omitempty"`
	OcppVersion   string    `json:"ocpp_version"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ChargePointConnected) EventType() string   { return "charge_point_connected" }
func (e ChargePointConnected) ChargePoint() string { return e.ChargePointID }

type ChargePointDisconnected struct {
	ChargePointID string    `json:"charge_point_id"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ChargePointDisconnected) EventType() string   { return "charge_point_disconnected" }
func (e ChargePointDisconnected) ChargePoint() string { return e.ChargePointID }

type ChargePointStatusChanged struct {
	ChargePointID string    `json:"charge_point_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ChargePointStatusChanged) EventType() string   { return "charge_point_status_changed" }
func (e ChargePointStatusChanged) ChargePoint() string { return e.ChargePointID }

type ConnectorStatusChanged struct {
	ChargePointID string    `json:"charge_point_id"`
	ConnectorID   int       `json:"connector_id"`
	Status        string    `json:"status"`
	ErrorCode     string    `json:"error_code,omitempty"`
	Info          string    `json:"info,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ConnectorStatusChanged) EventType() string   { return "connector_status_changed" }
func (e ConnectorStatusChanged) ChargePoint() string { return e.ChargePointID }

type TransactionStarted struct {
	ChargePointID string    `json:"charge_point_id"`
	ConnectorID   int       `json:"connector_id"`
	TransactionID int       `json:"transaction_id"`
	IdTag         string    `json:"id_tag"`
	MeterStart    int       `json:"meter_start"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e TransactionStarted) EventType() string   { return "transaction_started" }
func (e TransactionStarted) ChargePoint() string { return e.ChargePointID }

type TransactionStopped struct {
	ChargePointID     string    `json:"charge_point_id"`
	TransactionID     int       `json:"transaction_id"`
	IdTag             string    `json:"id_tag,omitempty"`
	MeterStop         int       `json:"meter_stop"`
	EnergyConsumedKwh float64   `json:"energy_consumed_kwh"`
	Reason            string    `json:"reason,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

func (e TransactionStopped) EventType() string   { return "transaction_stopped" }
func (e TransactionStopped) ChargePoint() string { return e.ChargePointID }

type MeterValuesReceived struct {
	ChargePointID    string    `json:"charge_point_id"`
	ConnectorID      int       `json:"connector_id"`
	TransactionID    *int      `json:"transaction_id,omitempty"`
	EnergyWh         *float64  `json:"energy_wh,omitempty"`
	EnergyConsumedWh *float64  `json:"energy_consumed_wh,omitempty"`
	PowerW           *float64  `json:"power_w,omitempty"`
	Soc              *float64  `json:"soc,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func (e MeterValuesReceived) EventType() string   { return "meter_values_received" }
func (e MeterValuesReceived) ChargePoint() string { return e.ChargePointID }

type HeartbeatReceived struct {
	ChargePointID string    `json:"charge_point_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e HeartbeatReceived) EventType() string   { return "heartbeat_received" }
func (e HeartbeatReceived) ChargePoint() string { return e.ChargePointID }

type AuthorizationResult struct {
	ChargePointID string    `json:"charge_point_id"`
	IdTag         string    `json:"id_tag"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e AuthorizationResult) EventType() string   { return "authorization_result" }
func (e AuthorizationResult) ChargePoint() string { return e.ChargePointID }

type BootNotificationReceived struct {
	ChargePointID   string    `json:"charge_point_id"`
	Vendor          string    `json:"vendor"`
	Model           string    `json:"model"`
	SerialNumber    string    `json:"serial_number,omitempty"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func (e BootNotificationReceived) EventType() string   { return "boot_notification" }
func (e BootNotificationReceived) ChargePoint() string { return e.ChargePointID }

type TransactionBilled struct {
	ChargePointID string    `json:"charge_point_id"`
	TransactionID int       `json:"transaction_id"`
	EnergyWh      int       `json:"energy_wh"`
	TotalCost     int       `json:"total_cost"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e TransactionBilled) EventType() string   { return "transaction_billed" }
func (e TransactionBilled) ChargePoint() string { return e.ChargePointID }

type DataTransferReceived struct {
	ChargePointID string          `json:"charge_point_id"`
	VendorID      string          `json:"vendor_id"`
	MessageID     string          `json:"message_id,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func (e DataTransferReceived) EventType() string   { return "data_transfer_received" }
func (e DataTransferReceived) ChargePoint() string { return e.ChargePointID }

type ReservationExpired struct {
	ChargePointID string    `json:"charge_point_id"`
	ReservationID int       `json:"reservation_id"`
	ConnectorID   int       `json:"connector_id"`
	IdTag         string    `json:"id_tag"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ReservationExpired) EventType() string   { return "reservation_expired" }
func (e ReservationExpired) ChargePoint() string { return e.ChargePointID }

type ErrorOccurred struct {
	ChargePointID string    `json:"charge_point_id,omitempty"`
	ErrorType     string    `json:"error_type"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ErrorOccurred) EventType() string   { return "error" }
func (e ErrorOccurred) ChargePoint() string { return e.ChargePointID }
