package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
)

type IdTagHandler struct {
	service *chargepoint.Service
	repo    ports.IdTagRepository
	log     *zap.Logger
}

func NewIdTagHandler(service *chargepoint.Service, repo ports.IdTagRepository, log *zap.Logger) *IdTagHandler {
	return &IdTagHandler{
		service: service,
		repo:    repo,
		log:     log,
	}
}

// List handles GET /api/v1/id-tags
func (h *IdTagHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	offset := c.QueryInt("offset", 0)

	tags, err := h.repo.FindAll(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(tags)
}

// Get handles GET /api/v1/id-tags/:tag
func (h *IdTagHandler) Get(c *fiber.Ctx) error {
	tag, err := h.repo.FindByTag(c.Context(), c.Params("tag"))
	if err != nil {
		return err
	}
	return c.JSON(tag)
}

type CreateIdTagRequest struct {
	IdTag                 string     `json:"id_tag"`
	ParentIdTag           *string    `json:"parent_id_tag,omitempty"`
	Name                  *string    `json:"name,omitempty"`
	ExpiryDate            *time.Time `json:"expiry_date,omitempty"`
	MaxActiveTransactions *int       `json:"max_active_transactions,omitempty"`
}

// Create handles POST /api/v1/id-tags
func (h *IdTagHandler) Create(c *fiber.Ctx) error {
	var req CreateIdTagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.IdTag == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id_tag is required"})
	}
	if len(req.IdTag) > 20 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id_tag must be at most 20 characters"})
	}

	tag := domain.NewIdTag(req.IdTag)
	tag.ParentIdTag = req.ParentIdTag
	tag.Name = req.Name
	tag.ExpiryDate = req.ExpiryDate
	tag.MaxActiveTransactions = req.MaxActiveTransactions

	if err := h.repo.Save(c.Context(), tag); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

type UpdateIdTagRequest struct {
	Status     *domain.AuthorizationStatus `json:"status,omitempty"`
	IsActive   *bool                       `json:"is_active,omitempty"`
	ExpiryDate *time.Time                  `json:"expiry_date,omitempty"`
	Name       *string                     `json:"name,omitempty"`
}

// Update handles PATCH /api/v1/id-tags/:tag. Any change invalidates the
// authorization cache entry so the next Authorize sees fresh state.
func (h *IdTagHandler) Update(c *fiber.Ctx) error {
	tagID := c.Params("tag")

	var req UpdateIdTagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	tag, err := h.repo.FindByTag(c.Context(), tagID)
	if err != nil {
		return err
	}
	if req.Status != nil {
		tag.Status = *req.Status
	}
	if req.IsActive != nil {
		tag.IsActive = *req.IsActive
	}
	if req.ExpiryDate != nil {
		tag.ExpiryDate = req.ExpiryDate
	}
	if req.Name != nil {
		tag.Name = req.Name
	}
	tag.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(c.Context(), tag); err != nil {
		return err
	}
	h.service.InvalidateIdTag(c.Context(), tagID)
	return c.JSON(tag)
}

// Delete handles DELETE /api/v1/id-tags/:tag
func (h *IdTagHandler) Delete(c *fiber.Ctx) error {
	tagID := c.Params("tag")
	if err := h.repo.Delete(c.Context(), tagID); err != nil {
		return err
	}
	h.service.InvalidateIdTag(c.Context(), tagID)
	return c.SendStatus(fiber.StatusNoContent)
}
