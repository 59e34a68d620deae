package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/service/monitor"
	"github.com/seu-repo/ocpp-central/internal/service/report"
)

type MonitoringHandler struct {
	heartbeats *monitor.HeartbeatMonitor
	reports    *report.Store
	log        *zap.Logger
}

func NewMonitoringHandler(heartbeats *monitor.HeartbeatMonitor, reports *report.Store, log *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		heartbeats: heartbeats,
		reports:    reports,
		log:        log,
	}
}

// HeartbeatStatuses handles GET /api/v1/monitoring/heartbeats
func (h *MonitoringHandler) HeartbeatStatuses(c *fiber.Ctx) error {
	statuses, err := h.heartbeats.GetAllStatuses(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(statuses)
}

// HeartbeatStatus handles GET /api/v1/monitoring/heartbeats/:id
func (h *MonitoringHandler) HeartbeatStatus(c *fiber.Ctx) error {
	status, err := h.heartbeats.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// ConnectionStats handles GET /api/v1/monitoring/connections
func (h *MonitoringHandler) ConnectionStats(c *fiber.Ctx) error {
	stats, err := h.heartbeats.GetConnectionStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// LatestReport handles GET /api/v1/charge-points/:id/reports/latest
func (h *MonitoringHandler) LatestReport(c *fiber.Ctx) error {
	rep, ok := h.reports.GetLatest(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no completed report for charge point"})
	}
	return c.JSON(rep)
}

// Report handles GET /api/v1/charge-points/:id/reports/:request
func (h *MonitoringHandler) Report(c *fiber.Ctx) error {
	requestID, err := c.ParamsInt("request")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request id"})
	}
	rep, ok := h.reports.Get(c.Params("id"), requestID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}
	return c.JSON(rep)
}

// ReportData handles GET /api/v1/charge-points/:id/reports/latest/data and
// serves the aggregated JSON array directly.
func (h *MonitoringHandler) ReportData(c *fiber.Ctx) error {
	rep, ok := h.reports.GetLatest(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no completed report for charge point"})
	}
	data := rep.Data
	if len(data) == 0 {
		data = json.RawMessage("[]")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
