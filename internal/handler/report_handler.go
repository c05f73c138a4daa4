package handler

import (
	"strconv"

	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReportHandler struct {
	service service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(s service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{service: s, logger: logger}
}

const missingPeriod = "Start date and end date are required"

func (h *ReportHandler) GetSalesReport(c *fiber.Ctx) error {
	start, end, ok := parsePeriod(c)
	if !ok {
		return badRequest(c, missingPeriod)
	}

	report, err := h.service.SalesReport(c.UserContext(), middleware.TenantID(c), start, end)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) GetPaymentMethods(c *fiber.Ctx) error {
	start, end, ok := parsePeriod(c)
	if !ok {
		return badRequest(c, missingPeriod)
	}

	rows, err := h.service.PaymentMethods(c.UserContext(), middleware.TenantID(c), start, end)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(rows)
}

func (h *ReportHandler) GetCategorySales(c *fiber.Ctx) error {
	start, end, ok := parsePeriod(c)
	if !ok {
		return badRequest(c, missingPeriod)
	}

	rows, err := h.service.CategorySales(c.UserContext(), middleware.TenantID(c), start, end)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(rows)
}

func (h *ReportHandler) GetTopSellingItems(c *fiber.Ctx) error {
	start, end, ok := parsePeriod(c)
	if !ok {
		return badRequest(c, missingPeriod)
	}

	rows, err := h.service.TopSellingItems(c.UserContext(), middleware.TenantID(c), start, end)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(rows)
}

// GetDashboardStats returns overview statistics
// Query params: days (default 30)
func (h *ReportHandler) GetDashboardStats(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil {
		return badRequest(c, "Invalid days value")
	}

	stats, err := h.service.DashboardStats(c.UserContext(), middleware.TenantID(c), days)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(stats)
}
