package handler

import (
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	service service.TransactionService
	logger  *zap.Logger
}

func NewTransactionHandler(s service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{service: s, logger: logger}
}

// GetTransactions lists the ledger, newest first
// Query params: type, startDate, endDate, search
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{
		Type:   model.TransactionType(c.Query("type")),
		Search: c.Query("search"),
	}
	if raw := c.Query("startDate"); raw != "" {
		start, err := parseDate(raw, false)
		if err != nil {
			return badRequest(c, "Invalid startDate")
		}
		filter.StartDate = &start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := parseDate(raw, true)
		if err != nil {
			return badRequest(c, "Invalid endDate")
		}
		filter.EndDate = &end
	}

	transactions, err := h.service.ListTransactions(c.UserContext(), middleware.TenantID(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(transactions)
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	transaction, err := h.service.GetTransaction(c.UserContext(), middleware.TenantID(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(transaction)
}

func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req service.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	transaction, err := h.service.PostTransaction(c.UserContext(), middleware.TenantID(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transaction)
}

// DeleteTransaction removes a transaction and restores stock for sales
func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	if err := h.service.DeleteTransaction(c.UserContext(), middleware.TenantID(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
