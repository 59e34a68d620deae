package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/command"
)

// ChargingProfileHandler installs and clears smart-charging profiles,
// mirroring accepted profiles into storage so the effective set per
// station can be queried without asking the hardware.
type ChargingProfileHandler struct {
	dispatcher *command.Dispatcher
	profiles   ports.ChargingProfileRepository
	log        *zap.Logger
}

func NewChargingProfileHandler(dispatcher *command.Dispatcher, profiles ports.ChargingProfileRepository, log *zap.Logger) *ChargingProfileHandler {
	return &ChargingProfileHandler{
		dispatcher: dispatcher,
		profiles:   profiles,
		log:        log,
	}
}

type SetChargingProfileRequest struct {
	ConnectorID int             `json:"connector_id"`
	ProfileID   int             `json:"profile_id"`
	StackLevel  int             `json:"stack_level"`
	Purpose     string          `json:"purpose"`
	Kind        string          `json:"kind"`
	Profile     json.RawMessage `json:"profile"`
}

// Set handles POST /api/v1/charge-points/:id/charging-profiles
func (h *ChargingProfileHandler) Set(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req SetChargingProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if len(req.Profile) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "profile is required"})
	}

	status, err := h.dispatcher.SetChargingProfile(c.Context(), chargePointID, req.ConnectorID, req.Profile)
	if err != nil {
		return err
	}

	if status == "Accepted" {
		now := time.Now().UTC()
		profile := &domain.ChargingProfile{
			ChargePointID: chargePointID,
			EvseID:        req.ConnectorID,
			ProfileID:     req.ProfileID,
			StackLevel:    req.StackLevel,
			Purpose:       req.Purpose,
			Kind:          req.Kind,
			ScheduleJSON:  string(req.Profile),
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := h.profiles.Save(c.Context(), profile); err != nil {
			h.log.Error("failed to record accepted charging profile",
				zap.String("charge_point_id", chargePointID),
				zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"status": status})
}

// Clear handles DELETE /api/v1/charge-points/:id/charging-profiles. With a
// profile_id query parameter only that profile is cleared, otherwise all.
func (h *ChargingProfileHandler) Clear(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var profileID *int
	if id := c.QueryInt("profile_id", 0); id != 0 {
		profileID = &id
	}

	status, err := h.dispatcher.ClearChargingProfile(c.Context(), chargePointID, profileID)
	if err != nil {
		return err
	}

	if status == "Accepted" {
		if profileID != nil {
			err = h.profiles.DeactivateByProfileID(c.Context(), chargePointID, *profileID)
		} else {
			err = h.profiles.DeactivateAll(c.Context(), chargePointID)
		}
		if err != nil {
			h.log.Error("failed to deactivate charging profiles",
				zap.String("charge_point_id", chargePointID),
				zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"status": status})
}

// List handles GET /api/v1/charge-points/:id/charging-profiles
func (h *ChargingProfileHandler) List(c *fiber.Ctx) error {
	chargePointID := c.Params("id")
	activeOnly := c.QueryBool("active", true)

	profiles, err := h.profiles.FindByChargePoint(c.Context(), chargePointID, activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(profiles)
}
