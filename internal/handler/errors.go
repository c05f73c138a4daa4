package handler

import (
	"errors"
	"strings"
	"time"

	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError is the single place where service errors become HTTP statuses
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	switch {
	case service.IsClientError(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("username", middleware.Username(c)),
		zap.String("store", middleware.StoreName(c)),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An error occurred"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// parseID reads the :id route parameter
func parseID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper bound covers the
// whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// parsePeriod reads the required startDate/endDate query pair
func parsePeriod(c *fiber.Ctx) (time.Time, time.Time, bool) {
	startRaw, endRaw := c.Query("startDate"), c.Query("endDate")
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err := parseDate(startRaw, false)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(endRaw, true)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
