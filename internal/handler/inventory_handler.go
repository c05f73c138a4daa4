package handler

import (
	"strconv"

	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	service service.InventoryService
	logger  *zap.Logger
}

func NewInventoryHandler(s service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{service: s, logger: logger}
}

// GetItems lists the tenant's catalog
// Query params: category, search, lowStock
func (h *InventoryHandler) GetItems(c *fiber.Ctx) error {
	lowStock, _ := strconv.ParseBool(c.Query("lowStock", "false"))
	filter := repository.InventoryFilter{
		Category:     c.Query("category"),
		Search:       c.Query("search"),
		LowStockOnly: lowStock,
	}

	items, err := h.service.ListItems(c.UserContext(), middleware.TenantID(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(categories)
}

func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	item, err := h.service.GetItem(c.UserContext(), middleware.TenantID(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(item)
}

func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var req service.ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, err := h.service.CreateItem(c.UserContext(), middleware.TenantID(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *InventoryHandler) UpdateItem(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	var req service.ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	item, err := h.service.UpdateItem(c.UserContext(), middleware.TenantID(c), id, &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(item)
}

func (h *InventoryHandler) DeleteItem(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	if err := h.service.DeleteItem(c.UserContext(), middleware.TenantID(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type stockAdjustmentRequest struct {
	Adjustment *int `json:"adjustment"`
}

// AdjustStock applies a relative stock change
// PATCH /api/inventory/:id/stock {"adjustment": -3}
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	var req stockAdjustmentRequest
	if err := c.BodyParser(&req); err != nil || req.Adjustment == nil {
		return badRequest(c, "Invalid adjustment value")
	}

	newQuantity, err := h.service.AdjustStock(c.UserContext(), middleware.TenantID(c), id, *req.Adjustment)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"success": true, "newQuantity": newQuantity})
}
