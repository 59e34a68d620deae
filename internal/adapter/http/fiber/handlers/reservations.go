package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/command"
)

// ReservationHandler creates reservations on the station first and only
// records them when the station accepts, so storage never claims a slot
// the hardware does not hold.
type ReservationHandler struct {
	dispatcher *command.Dispatcher
	repo       ports.ReservationRepository
	log        *zap.Logger
}

func NewReservationHandler(dispatcher *command.Dispatcher, repo ports.ReservationRepository, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		dispatcher: dispatcher,
		repo:       repo,
		log:        log,
	}
}

type CreateReservationRequest struct {
	ConnectorID int       `json:"connector_id"`
	IdTag       string    `json:"id_tag"`
	ParentIdTag *string   `json:"parent_id_tag,omitempty"`
	ExpiryDate  time.Time `json:"expiry_date"`
}

// Create handles POST /api/v1/charge-points/:id/reservations
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	chargePointID := c.Params("id")

	var req CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.IdTag == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id_tag is required"})
	}
	if !req.ExpiryDate.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expiry_date must be in the future"})
	}

	if existing, err := h.repo.FindActiveByConnector(c.Context(), chargePointID, req.ConnectorID); err != nil {
		return err
	} else if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":          "connector already reserved",
			"reservation_id": existing.ID,
		})
	}

	now := time.Now().UTC()
	reservation := &domain.Reservation{
		ChargePointID: chargePointID,
		ConnectorID:   req.ConnectorID,
		IdTag:         req.IdTag,
		ParentIdTag:   req.ParentIdTag,
		ExpiryDate:    req.ExpiryDate.UTC(),
		Status:        domain.ReservationStatusAccepted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Persist first to allocate the reservation id the station must echo
	// in CancelReservation.
	if err := h.repo.Save(c.Context(), reservation); err != nil {
		return err
	}

	status, err := h.dispatcher.ReserveNow(c.Context(), chargePointID, command.ReserveNowInput{
		ReservationID: reservation.ID,
		ConnectorID:   req.ConnectorID,
		ExpiryDate:    req.ExpiryDate,
		IdTag:         req.IdTag,
		ParentIdTag:   req.ParentIdTag,
	})
	if err != nil || status != "Accepted" {
		reservation.Status = domain.ReservationStatusCancelled
		reservation.UpdatedAt = time.Now().UTC()
		if updateErr := h.repo.Update(c.Context(), reservation); updateErr != nil {
			h.log.Error("failed to roll back rejected reservation",
				zap.Int("reservation_id", reservation.ID),
				zap.Error(updateErr))
		}
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": status})
	}

	return c.Status(fiber.StatusCreated).JSON(reservation)
}

// Cancel handles DELETE /api/v1/reservations/:id
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid reservation id"})
	}

	reservation, err := h.repo.FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	if !reservation.IsActive() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "reservation is not active"})
	}

	status, err := h.dispatcher.CancelReservation(c.Context(), reservation.ChargePointID, id)
	if err != nil {
		return err
	}
	if status != "Accepted" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": status})
	}

	reservation.Status = domain.ReservationStatusCancelled
	reservation.UpdatedAt = time.Now().UTC()
	if err := h.repo.Update(c.Context(), reservation); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List handles GET /api/v1/charge-points/:id/reservations
func (h *ReservationHandler) List(c *fiber.Ctx) error {
	reservations, err := h.repo.FindActiveByChargePoint(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(reservations)
}
