package handler

import (
	"time"

	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService   service.AuthService
	secureCookies bool
	logger        *zap.Logger
}

func NewAuthHandler(authService service.AuthService, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookies: secureCookies, logger: logger}
}

func (h *AuthHandler) setSession(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Signup creates a store account and starts a session
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req service.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	session, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.setSession(c, session.Token, session.ExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(session)
}

// Login handles user authentication
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	session, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.setSession(c, session.Token, session.ExpiresAt)
	return c.JSON(session)
}

// Logout revokes all sessions of the account and clears the cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.TenantID(c)); err != nil {
		return respondError(c, h.logger, err)
	}

	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the authenticated store account
// GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.Me(c.UserContext(), middleware.TenantID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
