package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Vijay-Anand-VJ/helpdesk-service/internal/service"
)

// ReportsHandler serves the dashboard aggregates.
type ReportsHandler struct {
	service *service.ReportService
}

func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// TicketStats GET /reports/tickets.
func (h *ReportsHandler) TicketStats(c *fiber.Ctx) error {
	stats, err := h.service.TicketStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"total":             stats.Total,
		"by_status":         stats.ByStatus,
		"by_priority":       stats.ByPriority,
		"by_category":       stats.ByCategory,
		"sla_breaches":      stats.SLABreaches,
		"agent_performance": stats.AgentPerformance,
	}})
}
