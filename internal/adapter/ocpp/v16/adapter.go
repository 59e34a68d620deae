package v16

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp"
	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
)

// Adapter handles OCPP 1.6 calls from charge points.
type Adapter struct {
	service *chargepoint.Service
	logger  *zap.Logger
}

func NewAdapter(service *chargepoint.Service, logger *zap.Logger) *Adapter {
	return &Adapter{
		service: service,
		logger:  logger,
	}
}

func (a *Adapter) Version() domain.OcppVersion {
	return domain.OcppV16
}

// Handle routes an OCPP 1.6 action to its handler and returns the
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
	case "StartTransaction":
		return a.handleStartTransaction(ctx, chargePointID, payload)
	case "StopTransaction":
		return a.handleStopTransaction(ctx, chargePointID, payload)
	case "MeterValues":
		return a.handleMeterValues(ctx, chargePointID, payload)
	case "DataTransfer":
		return a.handleDataTransfer(ctx, chargePointID, payload)
	case "DiagnosticsStatusNotification":
		return a.handleStatusReport(chargePointID, "diagnostics", payload)
	case "FirmwareStatusNotification":
		return a.handleStatusReport(chargePointID, "firmware", payload)
	case "SecurityEventNotification":
		return a.handleSecurityEvent(chargePointID, payload)
	default:
		a.logger.Warn("unknown OCPP 1.6 action",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", action))
		return nil, &ocpp.UnknownActionError{Action: action}
	}
}

type bootNotificationReq struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
}

type bootNotificationConf struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

func (a *Adapter) handleBootNotification(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req bootNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid BootNotification: %w", err)
	}

	a.logger.Info("BootNotification",
		zap.String("charge_point_id", chargePointID),
		zap.String("vendor", req.ChargePointVendor),
		zap.String("model", req.ChargePointModel),
		zap.String("firmware", req.FirmwareVersion))

	interval, now, err := a.service.HandleBootNotification(ctx, chargePointID, chargepoint.BootInfo{
		Vendor:          req.ChargePointVendor,
		Model:           req.ChargePointModel,
		SerialNumber:    req.ChargePointSerialNumber,
		FirmwareVersion: req.FirmwareVersion,
		Iccid:           req.Iccid,
		Imsi:            req.Imsi,
		MeterType:       req.MeterType,
		MeterSerial:     req.MeterSerialNumber,
		OcppVersion:     domain.OcppV16,
	})
	if err != nil {
		return nil, err
	}

	return bootNotificationConf{
		Status:      "Accepted",
		CurrentTime: now.Format(time.RFC3339),
		Interval:    interval,
	}, nil
}

func (a *Adapter) handleHeartbeat(ctx context.Context, chargePointID string) (interface{}, error) {
	now := a.service.HandleHeartbeat(ctx, chargePointID)
	return map[string]string{"currentTime": now.Format(time.RFC3339)}, nil
}

type statusNotificationReq struct {
	ConnectorID     int    `json:"connectorId"`
	Status          string `json:"status"`
	ErrorCode       string `json:"errorCode"`
	Info            string `json:"info,omitempty"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
}

func (a *Adapter) handleStatusNotification(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req statusNotificationReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid StatusNotification: %w", err)
	}

	a.logger.Info("StatusNotification",
		zap.String("charge_point_id", chargePointID),
		zap.Int("connector_id", req.ConnectorID),
		zap.String("status", req.Status),
		zap.String("error_code", req.ErrorCode))

	err := a.service.HandleStatusNotification(ctx, chargePointID, req.ConnectorID,
		domain.ConnectorStatus(req.Status), req.ErrorCode, req.Info, req.VendorErrorCode)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{}, nil
}

type idTagInfo struct {
	Status      string  `json:"status"`
	ExpiryDate  *string `json:"expiryDate,omitempty"`
	ParentIdTag *string `json:"parentIdTag,omitempty"`
}

func idTagInfoFor(status domain.AuthorizationStatus, tag *domain.IdTag) idTagInfo {
	info := idTagInfo{Status: string(status)}
	if tag != nil && status == domain.AuthorizationAccepted {
		if tag.ExpiryDate != nil {
			s := tag.ExpiryDate.UTC().Format(time.RFC3339)
			info.ExpiryDate = &s
		}
		info.ParentIdTag = tag.ParentIdTag
	}
	return info
}

type authorizeReq struct {
	IdTag string `json:"idTag"`
}

func (a *Adapter) handleAuthorize(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req authorizeReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid Authorize: %w", err)
	}

	status, tag := a.service.Authorize(ctx, chargePointID, req.IdTag)

	a.logger.Info("Authorize",
		zap.String("charge_point_id", chargePointID),
		zap.String("id_tag", req.IdTag),
		zap.String("status", string(status)))

	return map[string]interface{}{"idTagInfo": idTagInfoFor(status, tag)}, nil
}

type startTransactionReq struct {
	ConnectorID   int    `json:"connectorId"`
	IdTag         string `json:"idTag"`
	MeterStart    int    `json:"meterStart"`
	Timestamp     string `json:"timestamp"`
	ReservationID *int   `json:"reservationId,omitempty"`
}

type startTransactionConf struct {
	TransactionID int       `json:"transactionId"`
	IdTagInfo     idTagInfo `json:"idTagInfo"`
}

func (a *Adapter) handleStartTransaction(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req startTransactionReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid StartTransaction: %w", err)
	}

	startedAt := parseTimestamp(req.Timestamp)
	txID, status, err := a.service.StartTransaction(ctx, chargePointID, req.ConnectorID, req.IdTag, req.MeterStart, startedAt, "")
	if err != nil {
		return nil, err
	}

	a.logger.Info("StartTransaction",
		zap.String("charge_point_id", chargePointID),
		zap.Int("connector_id", req.ConnectorID),
		zap.String("id_tag", req.IdTag),
		zap.Int("transaction_id", txID),
		zap.String("status", string(status)))

	return startTransactionConf{
		TransactionID: txID,
		IdTagInfo:     idTagInfo{Status: string(status)},
	}, nil
}

type stopTransactionReq struct {
	TransactionID int    `json:"transactionId"`
	MeterStop     int    `json:"meterStop"`
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason,omitempty"`
	IdTag         string `json:"idTag,omitempty"`
}

func (a *Adapter) handleStopTransaction(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req stopTransactionReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid StopTransaction: %w", err)
	}

	reason := req.Reason
	if reason == "" {
		reason = "Local"
	}

	_, err := a.service.StopTransaction(ctx, chargePointID, req.TransactionID, req.MeterStop, parseTimestamp(req.Timestamp), reason)
	if err != nil {
		a.logger.Warn("StopTransaction failed",
			zap.String("charge_point_id", chargePointID),
			zap.Int("transaction_id", req.TransactionID),
			zap.Error(err))
		// the station already stopped; acknowledge so it does not retry forever
		return map[string]interface{}{}, nil
	}

	a.logger.Info("StopTransaction",
		zap.String("charge_point_id", chargePointID),
		zap.Int("transaction_id", req.TransactionID),
		zap.Int("meter_stop", req.MeterStop),
		zap.String("reason", reason))

	resp := map[string]interface{}{}
	if req.IdTag != "" {
		status, tag := a.service.Authorize(ctx, chargePointID, req.IdTag)
		resp["idTagInfo"] = idTagInfoFor(status, tag)
	}
	return resp, nil
}

type sampledValue struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

type meterValue struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []sampledValue `json:"sampledValue"`
}

type meterValuesReq struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *int         `json:"transactionId,omitempty"`
	MeterValue    []meterValue `json:"meterValue"`
}

func (a *Adapter) handleMeterValues(ctx context.Context, chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req meterValuesReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid MeterValues: %w", err)
	}

	a.logger.Debug("MeterValues",
		zap.String("charge_point_id", chargePointID),
		zap.Int("connector_id", req.ConnectorID),
		zap.Int("samples", len(req.MeterValue)))

	for _, mv := range req.MeterValue {
		sample := extractSample(mv.SampledValue)
		at := parseTimestamp(mv.Timestamp)
		if err := a.service.HandleMeterValues(ctx, chargePointID, req.ConnectorID, req.TransactionID, sample, at); err != nil {
			a.logger.Warn("meter value handling failed",
				zap.String("charge_point_id", chargePointID),
				zap.Error(err))
		}
	}
	return map[string]interface{}{}, nil
}

// extractSample pulls the known measurands out of one sampled value set.
// A value without a measurand is the energy register per OCPP 1.6 defaults.
func extractSample(values []sampledValue) chargepoint.MeterSample {
	var sample chargepoint.MeterSample
	for _, sv := range values {
		val, err := strconv.ParseFloat(sv.Value, 64)
		if err != nil {
			continue
		}
		switch sv.Measurand {
		case "", "Energy.Active.Import.Register":
			if sv.Unit == "kWh" {
				val *= 1000
			}
			wh := int(val)
			sample.EnergyWh = &wh
		case "Power.Active.Import":
			if sv.Unit == "kW" {
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
		zap.String("vendor_id", req.VendorID),
		zap.String("message_id", req.MessageID))
	a.service.HandleDataTransfer(ctx, chargePointID, req.VendorID, req.MessageID, req.Data)

	return map[string]string{"status": "Accepted"}, nil
}

type statusReportReq struct {
	Status string `json:"status"`
}

func (a *Adapter) handleStatusReport(chargePointID, kind string, payload json.RawMessage) (interface{}, error) {
	var req statusReportReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid %s status notification: %w", kind, err)
	}
	a.logger.Info("status notification",
		zap.String("charge_point_id", chargePointID),
		zap.String("kind", kind),
		zap.String("status", req.Status))
	return map[string]interface{}{}, nil
}

type securityEventReq struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	TechInfo  string `json:"techInfo,omitempty"`
}

func (a *Adapter) handleSecurityEvent(chargePointID string, payload json.RawMessage) (interface{}, error) {
	var req securityEventReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid SecurityEventNotification: %w", err)
	}
	a.logger.Warn("security event",
		zap.String("charge_point_id", chargePointID),
		zap.String("type", req.Type),
		zap.String("tech_info", req.TechInfo))
	return map[string]interface{}{}, nil
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
