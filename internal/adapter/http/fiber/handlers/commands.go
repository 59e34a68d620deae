package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/command"
)

// CommandHandler exposes the CS-to-CP verbs over REST. Every route takes
// the charge point id from the path and returns the status string (or raw
// payload) reported by the station.
type CommandHandler struct {
	dispatcher *command.Dispatcher
	service    *chargepoint.Service
	log        *zap.Logger
}

func NewCommandHandler(dispatcher *command.Dispatcher, service *chargepoint.Service, log *zap.Logger) *CommandHandler {
	return &CommandHandler{
		dispatcher: dispatcher,
		service:    service,
		log:        log,
	}
}

func statusReply(c *fiber.Ctx, status string) error {
	return c.JSON(fiber.Map{"status": status})
}

type RemoteStartRequest struct {
	IdTag       string            `json:"id_tag"`
	ConnectorID *int              `json:"connector_id,omitempty"`
	LimitType   *domain.LimitType `json:"limit_type,omitempty"`
	LimitValue  *float64          `json:"limit_value,omitempty"`
}

// RemoteStart handles POST /api/v1/charge-points/:id/commands/remote-start.
// An optional charging limit is staked on the connector and attached to the
// transaction the station subsequently opens.
func (h *CommandHandler) RemoteStart(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req RemoteStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.IdTag == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id_tag is required"})
	}

	if req.LimitType != nil && req.LimitValue != nil {
		connector := 0
		if req.ConnectorID != nil {
			connector = *req.ConnectorID
		}
		h.service.StakeLimit(chargePointID, connector, domain.ChargingLimit{
			Type:  *req.LimitType,
			Value: *req.LimitValue,
		})
	}

	status, err := h.dispatcher.RemoteStart(c.Context(), chargePointID, req.IdTag, req.ConnectorID)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

type RemoteStopRequest struct {
	TransactionID int `json:"transaction_id"`
}

// RemoteStop handles POST /api/v1/charge-points/:id/commands/remote-stop
func (h *CommandHandler) RemoteStop(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req RemoteStopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.TransactionID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "transaction_id is required"})
	}

	status, err := h.dispatcher.RemoteStop(c.Context(), chargePointID, req.TransactionID)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

type ResetRequest struct {
	Type string `json:"type"`
}

// Reset handles POST /api/v1/charge-points/:id/commands/reset
func (h *CommandHandler) Reset(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req ResetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	kind := command.ResetKind(req.Type)
	if kind != command.ResetSoft && kind != command.ResetHard {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "type must be Soft or Hard"})
	}

	status, err := h.dispatcher.Reset(c.Context(), chargePointID, kind)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

type ChangeAvailabilityRequest struct {
	ConnectorID int    `json:"connector_id"`
	Type        string `json:"type"`
}

// ChangeAvailability handles POST /api/v1/charge-points/:id/commands/change-availability
func (h *CommandHandler) ChangeAvailability(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req ChangeAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	availability := command.AvailabilityType(req.Type)
	if availability != command.AvailabilityOperative && availability != command.AvailabilityInoperative {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "type must be Operative or Inoperative"})
	}

	status, err := h.dispatcher.ChangeAvailability(c.Context(), chargePointID, req.ConnectorID, availability)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

type ChangeConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ChangeConfiguration handles POST /api/v1/charge-points/:id/commands/change-configuration
func (h *CommandHandler) ChangeConfiguration(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req ChangeConfigurationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key is required"})
	}

	status, err := h.dispatcher.ChangeConfiguration(c.Context(), chargePointID, req.Key, req.Value)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

// GetConfiguration handles GET /api/v1/charge-points/:id/commands/configuration
func (h *CommandHandler) GetConfiguration(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var keys []string
	if q := c.Query("keys"); q != "" {
		if err := json.Unmarshal([]byte(q), &keys); err != nil {
			keys = []string{q}
		}
	}

	resp, err := h.dispatcher.GetConfiguration(c.Context(), chargePointID, keys)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp)
}

type SetVariablesRequest struct {
	Variables []command.SetVariableInput `json:"variables"`
}

// SetVariables handles POST /api/v1/charge-points/:id/commands/set-variables
func (h *CommandHandler) SetVariables(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req SetVariablesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if len(req.Variables) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "variables is required"})
	}

	resp, err := h.dispatcher.SetVariables(c.Context(), chargePointID, req.Variables)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp)
}

type GetVariablesRequest struct {
	Variables []command.GetVariableInput `json:"variables"`
}

// GetVariables handles POST /api/v1/charge-points/:id/commands/get-variables
func (h *CommandHandler) GetVariables(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req GetVariablesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if len(req.Variables) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "variables is required"})
	}

	resp, err := h.dispatcher.GetVariables(c.Context(), chargePointID, req.Variables)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp)
}

// ClearCache handles POST /api/v1/charge-points/:id/commands/clear-cache
func (h *CommandHandler) ClearCache(c *fiber.Ctx) error {
	status, err := h.dispatcher.ClearCache(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

// DataTransfer handles POST /api/v1/charge-points/:id/commands/data-transfer
func (h *CommandHandler) DataTransfer(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req command.DataTransferInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.VendorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "vendor_id is required"})
	}

	resp, err := h.dispatcher.DataTransfer(c.Context(), chargePointID, req)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp)
}

type TriggerMessageRequest struct {
	RequestedMessage string `json:"requested_message"`
	ConnectorID      *int   `json:"connector_id,omitempty"`
}

// TriggerMessage handles POST /api/v1/charge-points/:id/commands/trigger-message
func (h *CommandHandler) TriggerMessage(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req TriggerMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.RequestedMessage == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "requested_message is required"})
	}

	status, err := h.dispatcher.TriggerMessage(c.Context(), chargePointID, req.RequestedMessage, req.ConnectorID)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

// UnlockConnector handles POST /api/v1/charge-points/:id/connectors/:connector/unlock
func (h *CommandHandler) UnlockConnector(c *fiber.Ctx) error {
	chargePointID := c.Params("id")
	connectorID, err := strconv.Atoi(c.Params("connector"))
	if err != nil || connectorID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid connector id"})
	}

	status, err := h.dispatcher.UnlockConnector(c.Context(), chargePointID, connectorID)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

type SendLocalListRequest struct {
	ListVersion int                      `json:"list_version"`
	UpdateType  string                   `json:"update_type"`
	Entries     []command.LocalListEntry `json:"entries"`
}

// SendLocalList handles POST /api/v1/charge-points/:id/commands/local-list
func (h *CommandHandler) SendLocalList(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req SendLocalListRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.UpdateType != "Full" && req.UpdateType != "Differential" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "update_type must be Full or Differential"})
	}

	status, err := h.dispatcher.SendLocalList(c.Context(), chargePointID, req.ListVersion, req.UpdateType, req.Entries)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

// GetLocalListVersion handles GET /api/v1/charge-points/:id/commands/local-list-version
func (h *CommandHandler) GetLocalListVersion(c *fiber.Ctx) error {
	version, err := h.dispatcher.GetLocalListVersion(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"list_version": version})
}

// GetCompositeSchedule handles GET /api/v1/charge-points/:id/connectors/:connector/composite-schedule
func (h *CommandHandler) GetCompositeSchedule(c *fiber.Ctx) error {
	chargePointID := c.Params("id")
	connectorID, err := strconv.Atoi(c.Params("connector"))
	if err != nil || connectorID < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid connector id"})
	}
	duration := c.QueryInt("duration", 3600)
	var unit *string
	if u := c.Query("charging_rate_unit"); u != "" {
		unit = &u
	}

	resp, err := h.dispatcher.GetCompositeSchedule(c.Context(), chargePointID, connectorID, duration, unit)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp)
}

// UpdateFirmware handles POST /api/v1/charge-points/:id/commands/update-firmware
func (h *CommandHandler) UpdateFirmware(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req command.UpdateFirmwareInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Location == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "location is required"})
	}

	status, err := h.dispatcher.UpdateFirmware(c.Context(), chargePointID, req)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

// GetDiagnostics handles POST /api/v1/charge-points/:id/commands/get-diagnostics
func (h *CommandHandler) GetDiagnostics(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req command.GetDiagnosticsInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Location == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "location is required"})
	}

	fileName, err := h.dispatcher.GetDiagnostics(c.Context(), chargePointID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"file_name": fileName})
}

// GetLog handles POST /api/v1/charge-points/:id/commands/get-log
func (h *CommandHandler) GetLog(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req command.GetLogInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Location == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "location is required"})
	}

	status, err := h.dispatcher.GetLog(c.Context(), chargePointID, req)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}

// GetBaseReport handles POST /api/v1/charge-points/:id/commands/base-report
func (h *CommandHandler) GetBaseReport(c *fiber.Ctx) error {
	chargePointID := c.Params("id")
	var req struct {
		RequestID int `json:"request_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	status, err := h.dispatcher.GetBaseReport(c.Context(), chargePointID, req.RequestID)
	if err != nil {
		return err
	}
	return statusReply(c, status)
}
