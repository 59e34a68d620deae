package command

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
)

// Dispatcher is the version-agnostic facade for CS-to-CP commands. It
// resolves the charge point's negotiated version, builds the matching
// payload and returns the raw status string reported by the station.
type Dispatcher struct {
	sender    *Sender
	directory SessionDirectory
	logger    *zap.Logger
}

func NewDispatcher(sender *Sender, directory SessionDirectory, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, directory: directory, logger: logger}
}

// Sender exposes the underlying transport for the inbound path to route
// CallResult/CallError frames into.
func (d *Dispatcher) Sender() *Sender {
	return d.sender
}

func (d *Dispatcher) version(chargePointID string) (domain.OcppVersion, error) {
	v, ok := d.directory.Version(chargePointID)
	if !ok {
		return "", notConnected(chargePointID)
	}
	return v, nil
}

// send records command metrics around the actual transport attempt.
func (d *Dispatcher) send(ctx context.Context, chargePointID, action string, payload json.RawMessage) (json.RawMessage, error) {
	start := time.Now()
	commandsTotal.WithLabelValues(action).Inc()

	resp, err := d.sender.SendCommand(ctx, chargePointID, action, payload)
	commandLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())

	if err != nil {
		d.logger.Warn("command failed",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", action),
			zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// sendForStatus sends and extracts the reply's "status" field.
func (d *Dispatcher) sendForStatus(ctx context.Context, chargePointID, action string, payload json.RawMessage) (string, error) {
	resp, err := d.send(ctx, chargePointID, action, payload)
	if err != nil {
		return "", err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return "", invalidResponse(chargePointID, err.Error())
	}
	return body.Status, nil
}

// RemoteStart asks the station to start a transaction for an id tag.
func (d *Dispatcher) RemoteStart(ctx context.Context, chargePointID, idTag string, connectorID *int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16RemoteStart(idTag, connectorID)
	} else {
		action, payload = v201RemoteStart(idTag, connectorID)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// RemoteStop asks the station to stop a running transaction.
func (d *Dispatcher) RemoteStop(ctx context.Context, chargePointID string, transactionID int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16RemoteStop(transactionID)
	} else {
		action, payload = v201RemoteStop(transactionID)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// Reset reboots the station. Soft maps to OnIdle and Hard to Immediate on
// OCPP 2.x.
func (d *Dispatcher) Reset(ctx context.Context, chargePointID string, kind ResetKind) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16Reset(kind)
	} else {
		action, payload = v201Reset(kind)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) ChangeAvailability(ctx context.Context, chargePointID string, connectorID int, availability AvailabilityType) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16ChangeAvailability(connectorID, availability)
	} else {
		action, payload = v201ChangeAvailability(connectorID, availability)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// ChangeConfiguration is a 1.6-only verb.
func (d *Dispatcher) ChangeConfiguration(ctx context.Context, chargePointID, key, value string) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	if v != domain.OcppV16 {
		return "", unsupportedVersion("ChangeConfiguration is not available in OCPP 2.0.1. Use SetVariables instead.")
	}
	action, payload := v16ChangeConfiguration(key, value)
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// GetConfiguration is a 1.6-only verb. Returns the raw reply payload since
// it carries a configurationKey list rather than a status.
func (d *Dispatcher) GetConfiguration(ctx context.Context, chargePointID string, keys []string) (json.RawMessage, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return nil, err
	}
	if v != domain.OcppV16 {
		return nil, unsupportedVersion("GetConfiguration is not available in OCPP 2.0.1. Use GetVariables instead.")
	}
	action, payload := v16GetConfiguration(keys)
	return d.send(ctx, chargePointID, action, payload)
}

// SetVariables is a 2.x-only verb.
func (d *Dispatcher) SetVariables(ctx context.Context, chargePointID string, vars []SetVariableInput) (json.RawMessage, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return nil, err
	}
	if v == domain.OcppV16 {
		return nil, unsupportedVersion("SetVariables is not available in OCPP 1.6. Use ChangeConfiguration instead.")
	}
	action, payload := v201SetVariables(vars)
	return d.send(ctx, chargePointID, action, payload)
}

// GetVariables is a 2.x-only verb.
func (d *Dispatcher) GetVariables(ctx context.Context, chargePointID string, vars []GetVariableInput) (json.RawMessage, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return nil, err
	}
	if v == domain.OcppV16 {
		return nil, unsupportedVersion("GetVariables is not available in OCPP 1.6. Use GetConfiguration instead.")
	}
	action, payload := v201GetVariables(vars)
	return d.send(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) ClearCache(ctx context.Context, chargePointID string) (string, error) {
	if _, err := d.version(chargePointID); err != nil {
		return "", err
	}
	return d.sendForStatus(ctx, chargePointID, "ClearCache", nil)
}

func (d *Dispatcher) DataTransfer(ctx context.Context, chargePointID string, in DataTransferInput) (json.RawMessage, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return nil, err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16DataTransfer(in)
	} else {
		action, payload = v201DataTransfer(in)
	}
	return d.send(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) GetLocalListVersion(ctx context.Context, chargePointID string) (int, error) {
	if _, err := d.version(chargePointID); err != nil {
		return 0, err
	}
	resp, err := d.send(ctx, chargePointID, "GetLocalListVersion", nil)
	if err != nil {
		return 0, err
	}
	var body struct {
		ListVersion   *int `json:"listVersion"`
		VersionNumber *int `json:"versionNumber"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return 0, invalidResponse(chargePointID, err.Error())
	}
	if body.ListVersion != nil {
		return *body.ListVersion, nil
	}
	if body.VersionNumber != nil {
		return *body.VersionNumber, nil
	}
	return 0, invalidResponse(chargePointID, "missing list version in reply")
}

func (d *Dispatcher) TriggerMessage(ctx context.Context, chargePointID, requested string, connectorID *int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16TriggerMessage(requested, connectorID)
	} else {
		action, payload = v201TriggerMessage(requested, connectorID)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) UnlockConnector(ctx context.Context, chargePointID string, connectorID int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16UnlockConnector(connectorID)
	} else {
		action, payload = v201UnlockConnector(connectorID)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) ReserveNow(ctx context.Context, chargePointID string, in ReserveNowInput) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16ReserveNow(in)
	} else {
		action, payload = v201ReserveNow(in)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) CancelReservation(ctx context.Context, chargePointID string, reservationID int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16CancelReservation(reservationID)
	} else {
		action, payload = v201CancelReservation(reservationID)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) SendLocalList(ctx context.Context, chargePointID string, version int, updateType string, entries []LocalListEntry) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16SendLocalList(version, updateType, entries)
	} else {
		action, payload = v201SendLocalList(version, updateType, entries)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// SetChargingProfile installs a smart-charging profile. The profile body is
// passed through verbatim since its schema differs per version.
func (d *Dispatcher) SetChargingProfile(ctx context.Context, chargePointID string, connectorID int, profile json.RawMessage) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16SetChargingProfile(connectorID, profile)
	} else {
		action, payload = v201SetChargingProfile(connectorID, profile)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) ClearChargingProfile(ctx context.Context, chargePointID string, profileID *int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16ClearChargingProfile(profileID)
	} else {
		action, payload = v201ClearChargingProfile(profileID)
	}
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// GetBaseReport asks a 2.x station for a full inventory report, assembled
// later from NotifyReport parts.
func (d *Dispatcher) GetBaseReport(ctx context.Context, chargePointID string, requestID int) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	if v == domain.OcppV16 {
		return "", unsupportedVersion("GetBaseReport is not available in OCPP 1.6.")
	}
	action, payload := v201GetBaseReport(requestID)
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// GetCompositeSchedule asks for the effective charging schedule on a
// connector. Returns the raw reply since it carries the schedule body.
func (d *Dispatcher) GetCompositeSchedule(ctx context.Context, chargePointID string, connectorID, duration int, chargingRateUnit *string) (json.RawMessage, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return nil, err
	}
	var action string
	var payload json.RawMessage
	if v == domain.OcppV16 {
		action, payload = v16GetCompositeSchedule(connectorID, duration, chargingRateUnit)
	} else {
		action, payload = v201GetCompositeSchedule(connectorID, duration, chargingRateUnit)
	}
	return d.send(ctx, chargePointID, action, payload)
}

func (d *Dispatcher) UpdateFirmware(ctx context.Context, chargePointID string, in UpdateFirmwareInput) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	if v == domain.OcppV16 {
		action, payload := v16UpdateFirmware(in)
		// the 1.6 reply is an empty object; treat transport success as accepted
		if _, err := d.send(ctx, chargePointID, action, payload); err != nil {
			return "", err
		}
		return "Accepted", nil
	}
	action, payload := v201UpdateFirmware(in)
	return d.sendForStatus(ctx, chargePointID, action, payload)
}

// GetDiagnostics is a 1.6-only verb. The reply's fileName is empty when the
// station has nothing to upload.
func (d *Dispatcher) GetDiagnostics(ctx context.Context, chargePointID string, in GetDiagnosticsInput) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	if v != domain.OcppV16 {
		return "", unsupportedVersion("GetDiagnostics is not available in OCPP 2.0.1. Use GetLog instead.")
	}
	action, payload := v16GetDiagnostics(in)
	resp, err := d.send(ctx, chargePointID, action, payload)
	if err != nil {
		return "", err
	}
	var body struct {
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return "", invalidResponse(chargePointID, err.Error())
	}
	return body.FileName, nil
}

// GetLog is a 2.x-only verb.
func (d *Dispatcher) GetLog(ctx context.Context, chargePointID string, in GetLogInput) (string, error) {
	v, err := d.version(chargePointID)
	if err != nil {
		return "", err
	}
	if v == domain.OcppV16 {
		return "", unsupportedVersion("GetLog is not available in OCPP 1.6. Use GetDiagnostics instead.")
	}
	action, payload := v201GetLog(in)
	return d.sendForStatus(ctx, chargePointID, action, payload)
}
