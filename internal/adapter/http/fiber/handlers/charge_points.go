package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/session"
)

type ChargePointHandler struct {
	service  *chargepoint.Service
	repos    ports.RepositoryProvider
	registry *session.Registry
	log      *zap.Logger
}

func NewChargePointHandler(service *chargepoint.Service, repos ports.RepositoryProvider, registry *session.Registry, log *zap.Logger) *ChargePointHandler {
	return &ChargePointHandler{
		service:  service,
		repos:    repos,
		registry: registry,
		log:      log,
	}
}

// List handles GET /api/v1/charge-points
func (h *ChargePointHandler) List(c *fiber.Ctx) error {
	filter := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if vendor := c.Query("vendor"); vendor != "" {
		filter["vendor"] = vendor
	}

	points, err := h.repos.ChargePoints().FindAll(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(points)
}

// Get handles GET /api/v1/charge-points/:id
func (h *ChargePointHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	cp, err := h.repos.ChargePoints().FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"charge_point": cp,
		"connected":    h.registry.IsConnected(id),
	})
}

// Delete handles DELETE /api/v1/charge-points/:id
func (h *ChargePointHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.registry.IsConnected(id) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "charge point is connected; disconnect it first",
		})
	}
	if err := h.repos.ChargePoints().Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SetPassword handles PUT /api/v1/charge-points/:id/password. It provisions
// the Basic-Auth credential enforced at the WebSocket handshake.
func (h *ChargePointHandler) SetPassword(c *fiber.Ctx) error {
	id := c.Params("id")

	var req SetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "password is required"})
	}

	if err := h.service.SetPassword(c.Context(), id, req.Password); err != nil {
		return err
	}
	h.log.Info("charge point password updated", zap.String("charge_point_id", id))
	return c.SendStatus(fiber.StatusNoContent)
}

// ListConnected handles GET /api/v1/charge-points/connected
func (h *ChargePointHandler) ListConnected(c *fiber.Ctx) error {
	ids := h.registry.ConnectedIDs()
	return c.JSON(fiber.Map{
		"count":         len(ids),
		"charge_points": ids,
	})
}
