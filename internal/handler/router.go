package handler

import (
	"go-pos-inventory/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth         *AuthHandler
	Inventory    *InventoryHandler
	Transactions *TransactionHandler
	Reports      *ReportHandler
	WS           *WSHandler
}

func SetupRoutes(app *fiber.App, h Handlers, auth middleware.Authenticator) {
	api := app.Group("/api")

	// ============ PUBLIC ROUTES ============
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", h.Auth.Signup)
	authGroup.Post("/login", h.Auth.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(auth))

	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Get("/auth/me", h.Auth.Me)

	// Inventory Routes
	protected.Get("/inventory", h.Inventory.GetItems)
	protected.Get("/inventory/categories", h.Inventory.GetCategories)
	protected.Get("/inventory/:id", h.Inventory.GetItem)
	protected.Post("/inventory", h.Inventory.CreateItem)
	protected.Put("/inventory/:id", h.Inventory.UpdateItem)
	protected.Delete("/inventory/:id", h.Inventory.DeleteItem)
	protected.Patch("/inventory/:id/stock", h.Inventory.AdjustStock)

	// Transaction Routes
	protected.Get("/transactions", h.Transactions.GetTransactions)
	protected.Get("/transactions/:id", h.Transactions.GetTransaction)
	protected.Post("/transactions", h.Transactions.CreateTransaction)
	protected.Delete("/transactions/:id", h.Transactions.DeleteTransaction)

	// Report Routes
	protected.Get("/reports/sales", h.Reports.GetSalesReport)
	protected.Get("/reports/payment-methods", h.Reports.GetPaymentMethods)
	protected.Get("/reports/category-sales", h.Reports.GetCategorySales)
	protected.Get("/reports/top-selling-items", h.Reports.GetTopSellingItems)
	protected.Get("/dashboard/stats", h.Reports.GetDashboardStats)

	// WebSocket Route
	if h.WS != nil {
		app.Use("/ws", h.WS.RequireUpgrade, middleware.RequireWebSocketAuth(auth))
		app.Get("/ws", h.WS.Serve())
	}
}
