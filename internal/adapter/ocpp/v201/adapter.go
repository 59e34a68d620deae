package v201

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp"
	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/report"
)

// Adapter handles OCPP 2.0.1 calls from charging stations. OCPP 2.1
// stations share this adapter; the 2.1 additions the central system cares
// about are backward compatible at this message set.
type Adapter struct {
	version domain.OcppVersion
	service *chargepoint.Service
	reports *report.Store
	logger  *zap.Logger
}

func NewAdapter(version domain.OcppVersion, service *chargepoint.Service, reports *report.Store, logger *zap.Logger) *Adapter {
	return &Adapter{
		version: version,
		service: service,
		reports: reports,
		logger:  logger,
	}
}

func (a *Adapter) Version() domain.OcppVersion {
	return a.version
}

// Handle routes an OCPP 2.0.1 action to its handler and returns the
// CallResult payload.
func (a *Adapter) Handle(ctx context.Context, chargePointID, action string, payload json.RawMessage) (interface{}, error) {
	switch action {
	case "BootNotification":
		return a.handleBootNotification(ctx, chargePointID, payload)
	case "Heartbeat":
		return a.handleHeartbeat(ctx, chargePointID)
	case "StatusNotification":
		return a.handleStatusNotification(ctx, chargePointID, payload)
	case "Authorize":
		return a.handleAuthorize(ctx, chargePointID, payload)
	case "TransactionEvent":
		return a.handleTransactionEvent(ctx, chargePointID, payload)
	case "MeterValues":
		return a.handleMeterValues(ctx, chargePointID, payload)
	case "NotifyReport":
		return a.handleNotifyReport(chargePointID, payload)
	case "DataTransfer":
		return a.handleDataTransfer(ctx, chargePointID, payload)
	case "FirmwareStatusNotification", "LogStatusNotification",
		"NotifyEvent", "NotifyMonitoringReport", "ReportChargingProfiles",
		"SecurityEventNotification":
		return a.handleAck(chargePointID, action, payload)
	default:
		a.logger.Warn("unknown OCPP 2.0.1 action",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", action))
		return nil, &ocpp.UnknownActionError{Action: action}
	}
}

type modem struct {
	Iccid string `json:"iccid,omitempty"`
	Imsi  string `json:"imsi,omitempty"`
}

type chargingStation struct {
	Model           string `json:"model"`
	VendorName      string `json:"vendorName"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	Modem           *modem `json:"modem,omitempty"`
}

type bootNotificationReq struct {
	Reason          string          `json:"reason"`
	ChargingStation chargingStation `json:"chargingStation"`
}

type bootNotificationConf struct {
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
	Status      string `json:"status"`
}

func (a *Adapter) handleBootNotification(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req bootNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid BootNotification: %w", err)
	}

	a.logger.Info("BootNotification",
		zap.String("charge_point_id", chargePointID),
		zap.String("reason", req.Reason),
		zap.String("vendor", req.ChargingStation.VendorName),
		zap.String("model", req.ChargingStation.Model))

	info := chargepoint.BootInfo{
		Vendor:          req.ChargingStation.VendorName,
		Model:           req.ChargingStation.Model,
		SerialNumber:    req.ChargingStation.SerialNumber,
		FirmwareVersion: req.ChargingStation.FirmwareVersion,
		OcppVersion:     a.version,
	}
	if req.ChargingStation.Modem != nil {
		info.Iccid = req.ChargingStation.Modem.Iccid
		info.Imsi = req.ChargingStation.Modem.Imsi
	}

	interval, now, err := a.service.HandleBootNotification(ctx, chargePointID, info)
	if err != nil {
		return nil, err
	}

	return bootNotificationConf{
		CurrentTime: now.Format(time.RFC3339),
		Interval:    interval,
		Status:      "Accepted",
	}, nil
}

func (a *Adapter) handleHeartbeat(ctx context.Context, chargePointID string) (interface{}, error) {
	now := a.service.HandleHeartbeat(ctx, chargePointID)
	return map[string]string{"currentTime": now.Format(time.RFC3339)}, nil
}

type statusNotificationReq struct {
	Timestamp       string `json:"timestamp"`
	ConnectorStatus string `json:"connectorStatus"`
	EvseID          int    `json:"evseId"`
	ConnectorID     int    `json:"connectorId"`
}

// connectorStatusOf maps the 2.0.1 connector status enum onto the stored
// one. Occupied covers everything from Preparing to Finishing in 2.0.1.
func connectorStatusOf(s string) domain.ConnectorStatus {
	if s == "Occupied" {
		return domain.ConnectorStatusCharging
	}
	return domain.ConnectorStatus(s)
}

func (a *Adapter) handleStatusNotification(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req statusNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid StatusNotification: %w", err)
	}

	a.logger.Info("StatusNotification",
		zap.String("charge_point_id", chargePointID),
		zap.Int("evse_id", req.EvseID),
		zap.Int("connector_id", req.ConnectorID),
		zap.String("status", req.ConnectorStatus))

	err := a.service.HandleStatusNotification(ctx, chargePointID, req.EvseID,
		connectorStatusOf(req.ConnectorStatus), "", "", "")
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{}, nil
}

type idToken struct {
	IdToken string `json:"idToken"`
	Type    string `json:"type"`
}

type idTokenInfo struct {
	Status string `json:"status"`
}

type authorizeReq struct {
	IdToken idToken `json:"idToken"`
}

func (a *Adapter) handleAuthorize(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req authorizeReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid Authorize: %w", err)
	}

	status, _ := a.service.Authorize(ctx, chargePointID, req.IdToken.IdToken)

	a.logger.Info("Authorize",
		zap.String("charge_point_id", chargePointID),
		zap.String("id_token", req.IdToken.IdToken),
		zap.String("status", string(status)))

	return map[string]interface{}{"idTokenInfo": idTokenInfo{Status: string(status)}}, nil
}

type sampledValue struct {
	Value     float64 `json:"value"`
	Measurand string  `json:"measurand,omitempty"`
	UnitOfMeasure *struct {
		Unit string `json:"unit,omitempty"`
	} `json:"unitOfMeasure,omitempty"`
}

type meterValue struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []sampledValue `json:"sampledValue"`
}

type transactionInfo struct {
	TransactionID string `json:"transactionId"`
	StoppedReason string `json:"stoppedReason,omitempty"`
}

type evse struct {
	ID          int `json:"id"`
	ConnectorID int `json:"connectorId,omitempty"`
}

type transactionEventReq struct {
	EventType       string          `json:"eventType"`
	Timestamp       string          `json:"timestamp"`
	TriggerReason   string          `json:"triggerReason,omitempty"`
	SeqNo           int             `json:"seqNo"`
	TransactionInfo transactionInfo `json:"transactionInfo"`
	Evse            *evse           `json:"evse,omitempty"`
	IdToken         *idToken        `json:"idToken,omitempty"`
	MeterValue      []meterValue    `json:"meterValue,omitempty"`
}

type transactionEventConf struct {
	TotalCost   *float64     `json:"totalCost,omitempty"`
	IdTokenInfo *idTokenInfo `json:"idTokenInfo,omitempty"`
}

func (a *Adapter) handleTransactionEvent(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req transactionEventReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid TransactionEvent: %w", err)
	}

	at := parseTimestamp(req.Timestamp)
	connectorID := 1
	if req.Evse != nil && req.Evse.ID > 0 {
		connectorID = req.Evse.ID
	}

	a.logger.Info("TransactionEvent",
		zap.String("charge_point_id", chargePointID),
		zap.String("event_type", req.EventType),
		zap.String("transaction_id", req.TransactionInfo.TransactionID),
		zap.Int("seq_no", req.SeqNo))

	switch req.EventType {
	case "Started":
		return a.transactionStarted(ctx, chargePointID, connectorID, req, at)
	case "Updated":
		sample := extractSample(req.MeterValue)
		if err := a.service.UpdateByOcppID(ctx, chargePointID, req.TransactionInfo.TransactionID, connectorID, sample, at); err != nil {
			a.logger.Warn("transaction update failed",
				zap.String("charge_point_id", chargePointID),
				zap.String("transaction_id", req.TransactionInfo.TransactionID),
				zap.Error(err))
		}
		return transactionEventConf{}, nil
	case "Ended":
		return a.transactionEnded(ctx, chargePointID, req, at)
	default:
		return nil, fmt.Errorf("unknown TransactionEvent type %q", req.EventType)
	}
}

func (a *Adapter) transactionStarted(ctx context.Context, chargePointID string, connectorID int, req transactionEventReq, at time.Time) (interface{}, error) {
	tag := ""
	if req.IdToken != nil {
		tag = req.IdToken.IdToken
	}

	meterStart := 0
	if sample := extractSample(req.MeterValue); sample.EnergyWh != nil {
		meterStart = *sample.EnergyWh
	}

	_, status, err := a.service.StartTransaction(ctx, chargePointID, connectorID, tag, meterStart, at, req.TransactionInfo.TransactionID)
	if err != nil {
		return nil, err
	}

	conf := transactionEventConf{}
	if req.IdToken != nil {
		conf.IdTokenInfo = &idTokenInfo{Status: string(status)}
	}
	return conf, nil
}

func (a *Adapter) transactionEnded(ctx context.Context, chargePointID string, req transactionEventReq, at time.Time) (interface{}, error) {
	meterStop := 0
	if sample := extractSample(req.MeterValue); sample.EnergyWh != nil {
		meterStop = *sample.EnergyWh
	}
	reason := req.TransactionInfo.StoppedReason
	if reason == "" {
		reason = "Remote"
	}

	tx, err := a.service.StopByOcppID(ctx, chargePointID, req.TransactionInfo.TransactionID, meterStop, at, reason)
	if err != nil {
		a.logger.Warn("transaction end failed",
			zap.String("charge_point_id", chargePointID),
			zap.String("transaction_id", req.TransactionInfo.TransactionID),
			zap.Error(err))
		return transactionEventConf{}, nil
	}

	conf := transactionEventConf{}
	if record := a.service.BillingFor(ctx, tx.ID); record != nil {
		// totalCost is in whole currency units on the wire
		cost := float64(record.TotalCost) / 100
		conf.TotalCost = &cost
	}
	if req.IdToken != nil {
		conf.IdTokenInfo = &idTokenInfo{Status: "Accepted"}
	}
	return conf, nil
}

type meterValuesReq struct {
	EvseID     int          `json:"evseId"`
	MeterValue []meterValue `json:"meterValue"`
}

func (a *Adapter) handleMeterValues(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req meterValuesReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid MeterValues: %w", err)
	}

	for _, mv := range req.MeterValue {
		sample := extractSampleOne(mv)
		if err := a.service.HandleMeterValues(ctx, chargePointID, req.EvseID, nil, sample, parseTimestamp(mv.Timestamp)); err != nil {
			a.logger.Warn("meter value handling failed",
				zap.String("charge_point_id", chargePointID),
				zap.Error(err))
		}
	}
	return map[string]interface{}{}, nil
}

// extractSample folds all meter value entries into one sample, later
// entries winning.
func extractSample(values []meterValue) chargepoint.MeterSample {
	var sample chargepoint.MeterSample
	for _, mv := range values {
		one := extractSampleOne(mv)
		if one.EnergyWh != nil {
			sample.EnergyWh = one.EnergyWh
		}
		if one.PowerW != nil {
			sample.PowerW = one.PowerW
		}
		if one.Soc != nil {
			sample.Soc = one.Soc
		}
	}
	return sample
}

func extractSampleOne(mv meterValue) chargepoint.MeterSample {
	var sample chargepoint.MeterSample
	for _, sv := range mv.SampledValue {
		unit := ""
		if sv.UnitOfMeasure != nil {
			unit = sv.UnitOfMeasure.Unit
		}
		val := sv.Value
		switch sv.Measurand {
		case "", "Energy.Active.Import.Register":
			if unit == "kWh" {
				val *= 1000
			}
			wh := int(val)
			sample.EnergyWh = &wh
		case "Power.Active.Import":
			if unit == "kW" {
				val *= 1000
			}
			w := val
			sample.PowerW = &w
		case "SoC":
			soc := val
			sample.Soc = &soc
		}
	}
	return sample
}

type notifyReportReq struct {
	RequestID   int             `json:"requestId"`
	GeneratedAt string          `json:"generatedAt"`
	Tbc         bool            `json:"tbc"`
	SeqNo       int             `json:"seqNo"`
	ReportData  json.RawMessage `json:"reportData,omitempty"`
}

func (a *Adapter) handleNotifyReport(chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req notifyReportReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid NotifyReport: %w", err)
	}

	a.logger.Info("NotifyReport",
		zap.String("charge_point_id", chargePointID),
		zap.Int("request_id", req.RequestID),
		zap.Int("seq_no", req.SeqNo),
		zap.Bool("tbc", req.Tbc))

	data := req.ReportData
	if len(data) == 0 {
		data = json.RawMessage("[]")
	}
	a.reports.Append(chargePointID, req.RequestID, data, req.Tbc)

	return map[string]interface{}{}, nil
}

type dataTransferReq struct {
	VendorID  string          `json:"vendorId"`
	MessageID string          `json:"messageId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (a *Adapter) handleDataTransfer(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req dataTransferReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid DataTransfer: %w", err)
	}
	a.logger.Info("DataTransfer",
		zap.String("charge_point_id", chargePointID),
		zap.String("vendor_id", req.VendorID))
	a.service.HandleDataTransfer(ctx, chargePointID, req.VendorID, req.MessageID, req.Data)
	return map[string]string{"status": "Accepted"}, nil
}

func (a *Adapter) handleAck(chargePointID, action string, payload json.RawMessage) (interface{}, error) {
	a.logger.Info("notification acknowledged",
		zap.String("charge_point_id", chargePointID),
		zap.String("action", action),
		zap.Int("payload_bytes", len(payload)))
	return map[string]interface{}{}, nil
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
