package middleware

import (
	"context"
	"strings"

	"go-pos-inventory/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SessionCookie carries the session token for browser clients
const SessionCookie = "session"

// LocalTenantID is the fiber.Ctx (and websocket.Conn) locals key holding the tenant uuid.UUID
const LocalTenantID = "tenant_id"

const (
	localUsername  = "username"
	localStoreName = "store_name"
)

// Authenticator validates a session token and rejects revoked sessions
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// RequireAuth validates the session (Bearer header or session cookie) and sets the tenant in context
func RequireAuth(auth Authenticator) fiber.Handler {
	return authenticate(auth, false)
}

// RequireWebSocketAuth also accepts ?token= since browsers cannot set headers on upgrade requests
func RequireWebSocketAuth(auth Authenticator) fiber.Handler {
	return authenticate(auth, true)
}

func authenticate(auth Authenticator, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := extractToken(c, allowQuery)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
		}

		claims, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired session"})
		}

		// Set tenant info in context for downstream handlers
		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(localUsername, claims.Username)
		c.Locals(localStoreName, claims.StoreName)

		return c.Next()
	}
}

// extractToken returns false only for a malformed Authorization header
func extractToken(c *fiber.Ctx, allowQuery bool) (string, bool) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", false
		}
		return parts[1], true
	}

	if cookie := c.Cookies(SessionCookie); cookie != "" {
		return cookie, true
	}

	if allowQuery {
		return c.Query("token"), true
	}
	return "", true
}

// TenantID returns the authenticated tenant. Only valid behind RequireAuth.
func TenantID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(LocalTenantID).(uuid.UUID)
	return id
}

func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(localUsername).(string)
	return name
}

func StoreName(c *fiber.Ctx) string {
	name, _ := c.Locals(localStoreName).(string)
	return name
}
