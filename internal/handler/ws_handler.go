package handler

import (
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WSHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *ws.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// RequireUpgrade rejects plain HTTP requests on the websocket route
func (h *WSHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Serve registers the connection under its tenant and keeps it open until the client leaves
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		tenantID, ok := c.Locals(middleware.LocalTenantID).(uuid.UUID)
		if !ok || tenantID == uuid.Nil {
			h.logger.Warn("ws connection without tenant")
			c.Close()
			return
		}

		client := &ws.Client{Conn: c, TenantID: tenantID}
		if !h.hub.Join(client) {
			c.Close()
			return
		}
		defer h.hub.Leave(client)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
