package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

type TariffHandler struct {
	repo ports.TariffRepository
	log  *zap.Logger
}

func NewTariffHandler(repo ports.TariffRepository, log *zap.Logger) *TariffHandler {
	return &TariffHandler{repo: repo, log: log}
}

// List handles GET /api/v1/tariffs
func (h *TariffHandler) List(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active", false)
	tariffs, err := h.repo.FindAll(c.Context(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(tariffs)
}

// Get handles GET /api/v1/tariffs/:id
func (h *TariffHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tariff id"})
	}
	tariff, err := h.repo.FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(tariff)
}

// GetDefault handles GET /api/v1/tariffs/default
func (h *TariffHandler) GetDefault(c *fiber.Ctx) error {
	tariff, err := h.repo.FindDefault(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(tariff)
}

type TariffRequest struct {
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	TariffType     domain.TariffType `json:"tariff_type"`
	PricePerKwh    int               `json:"price_per_kwh"`
	PricePerMinute int               `json:"price_per_minute"`
	SessionFee     int               `json:"session_fee"`
	Currency       string            `json:"currency"`
	MinFee         int               `json:"min_fee"`
	MaxFee         int               `json:"max_fee"`
	IsDefault      bool              `json:"is_default"`
	ValidFrom      *time.Time        `json:"valid_from,omitempty"`
	ValidUntil     *time.Time        `json:"valid_until,omitempty"`
}

func (r *TariffRequest) validate() string {
	if r.Name == "" {
		return "name is required"
	}
	if r.Currency == "" {
		return "currency is required"
	}
	switch r.TariffType {
	case domain.TariffPerKwh, domain.TariffPerMinute, domain.TariffPerSession, domain.TariffCombined:
	default:
		return "invalid tariff_type"
	}
	if r.PricePerKwh < 0 || r.PricePerMinute < 0 || r.SessionFee < 0 || r.MinFee < 0 || r.MaxFee < 0 {
		return "prices must not be negative"
	}
	return ""
}

// Create handles POST /api/v1/tariffs. Making a tariff the default demotes
// the previous default.
func (h *TariffHandler) Create(c *fiber.Ctx) error {
	var req TariffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	if req.IsDefault {
		if err := h.demoteCurrentDefault(c); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	tariff := &domain.Tariff{
		Name:           req.Name,
		Description:    req.Description,
		TariffType:     req.TariffType,
		PricePerKwh:    req.PricePerKwh,
		PricePerMinute: req.PricePerMinute,
		SessionFee:     req.SessionFee,
		Currency:       req.Currency,
		MinFee:         req.MinFee,
		MaxFee:         req.MaxFee,
		IsActive:       true,
		IsDefault:      req.IsDefault,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.repo.Save(c.Context(), tariff); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tariff)
}

// Update handles PUT /api/v1/tariffs/:id
func (h *TariffHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tariff id"})
	}

	var req TariffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	tariff, err := h.repo.FindByID(c.Context(), id)
	if err != nil {
		return err
	}

	if req.IsDefault && !tariff.IsDefault {
		if err := h.demoteCurrentDefault(c); err != nil {
			return err
		}
	}

	tariff.Name = req.Name
	tariff.Description = req.Description
	tariff.TariffType = req.TariffType
	tariff.PricePerKwh = req.PricePerKwh
	tariff.PricePerMinute = req.PricePerMinute
	tariff.SessionFee = req.SessionFee
	tariff.Currency = req.Currency
	tariff.MinFee = req.MinFee
	tariff.MaxFee = req.MaxFee
	tariff.IsDefault = req.IsDefault
	tariff.ValidFrom = req.ValidFrom
	tariff.ValidUntil = req.ValidUntil
	tariff.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(c.Context(), tariff); err != nil {
		return err
	}
	return c.JSON(tariff)
}

// Delete handles DELETE /api/v1/tariffs/:id
func (h *TariffHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid tariff id"})
	}
	if err := h.repo.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TariffHandler) demoteCurrentDefault(c *fiber.Ctx) error {
	current, err := h.repo.FindDefault(c.Context())
	if err != nil {
		// no default yet is fine
		return nil
	}
	current.IsDefault = false
	current.UpdatedAt = time.Now().UTC()
	return h.repo.Update(c.Context(), current)
}
