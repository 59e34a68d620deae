package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
)

type TransactionHandler struct {
	service *chargepoint.Service
	billing ports.BillingService
	repos   ports.RepositoryProvider
	log     *zap.Logger
}

func NewTransactionHandler(service *chargepoint.Service, billing ports.BillingService, repos ports.RepositoryProvider, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		billing: billing,
		repos:   repos,
		log:     log,
	}
}

// List handles GET /api/v1/charge-points/:id/transactions
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	chargePointID := c.Params("id")
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	txs, err := h.repos.Transactions().FindByChargePoint(c.Context(), chargePointID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(txs)
}

// ListActive handles GET /api/v1/charge-points/:id/transactions/active
func (h *TransactionHandler) ListActive(c *fiber.Ctx) error {
	chargePointID := c.Params("id")
	txs, err := h.repos.Transactions().FindActiveByChargePoint(c.Context(), chargePointID)
	if err != nil {
		return err
	}
	return c.JSON(txs)
}

// Get handles GET /api/v1/transactions/:id
func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid transaction id"})
	}

	tx, err := h.repos.Transactions().FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

// GetBilling handles GET /api/v1/transactions/:id/billing
func (h *TransactionHandler) GetBilling(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid transaction id"})
	}

	record, err := h.repos.Billing().FindByTransactionID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

// GetCostEstimate handles GET /api/v1/transactions/:id/cost. It prices the
// transaction against the current default tariff without persisting.
func (h *TransactionHandler) GetCostEstimate(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid transaction id"})
	}

	tx, err := h.repos.Transactions().FindByID(c.Context(), id)
	if err != nil {
		return err
	}
	breakdown, err := h.billing.CostBreakdown(c.Context(), tx)
	if err != nil {
		return err
	}
	return c.JSON(breakdown)
}

type ForceStopRequest struct {
	Reason string `json:"reason"`
}

// ForceStop handles POST /api/v1/transactions/:id/force-stop. It attempts a
// remote stop and closes the transaction locally even if the station does
// not respond.
func (h *TransactionHandler) ForceStop(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid transaction id"})
	}

	var req ForceStopRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	reason := req.Reason
	if reason == "" {
		reason = "Remote"
	}

	tx, err := h.service.ForceStop(c.Context(), id, reason)
	if err != nil {
		return err
	}
	h.log.Info("transaction force stopped",
		zap.Int("transaction_id", id),
		zap.String("reason", reason))
	return c.JSON(tx)
}
