package command

import (
	"time"
)

// ResetKind is the version-agnostic reset request accepted by the facade.
type ResetKind string

const (
	ResetSoft ResetKind = "Soft"
	ResetHard ResetKind = "Hard"
)

// AvailabilityType for ChangeAvailability.
type AvailabilityType string

const (
	AvailabilityOperative   AvailabilityType = "Operative"
	AvailabilityInoperative AvailabilityType = "Inoperative"
)

// SetVariableInput is one entry of a SetVariables request (OCPP 2.x).
type SetVariableInput struct {
	Component string `json:"component"`
	Variable  string `json:"variable"`
	Value     string `json:"value"`
}

// GetVariableInput is one entry of a GetVariables request (OCPP 2.x).
type GetVariableInput struct {
	Component string `json:"component"`
	Variable  string `json:"variable"`
}

// ReserveNowInput carries a reservation request to the station.
type ReserveNowInput struct {
	ReservationID int        `json:"reservation_id"`
	ConnectorID   int        `json:"connector_id"`
	ExpiryDate    time.Time  `json:"expiry_date"`
	IdTag         string     `json:"id_tag"`
	ParentIdTag   *string    `json:"parent_id_tag,omitempty"`
}

// LocalListEntry is one authorization entry for SendLocalList.
type LocalListEntry struct {
	IdTag       string     `json:"id_tag"`
	Status      string     `json:"status"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	ParentIdTag *string    `json:"parent_id_tag,omitempty"`
}

// DataTransferInput carries a vendor-specific message.
type DataTransferInput struct {
	VendorID  string  `json:"vendor_id"`
	MessageID *string `json:"message_id,omitempty"`
	Data      *string `json:"data,omitempty"`
}

// UpdateFirmwareInput points the station at a firmware image.
type UpdateFirmwareInput struct {
	Location      string    `json:"location"`
	RetrieveDate  time.Time `json:"retrieve_date"`
	Retries       *int      `json:"retries,omitempty"`
	RetryInterval *int      `json:"retry_interval,omitempty"`
}

// GetDiagnosticsInput asks a 1.6 station to upload its diagnostics file.
type GetDiagnosticsInput struct {
	Location  string     `json:"location"`
	StartTime *time.Time `json:"start_time,omitempty"`
	StopTime  *time.Time `json:"stop_time,omitempty"`
	Retries   *int       `json:"retries,omitempty"`
}

// GetLogInput asks a 2.x station to upload a log file.
type GetLogInput struct {
	Location  string     `json:"location"`
	LogType   string     `json:"log_type"`
	RequestID int        `json:"request_id"`
	StartTime *time.Time `json:"start_time,omitempty"`
	StopTime  *time.Time `json:"stop_time,omitempty"`
}
