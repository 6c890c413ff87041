package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/utils"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
)

// CustomErrorHandler maps engine error kinds onto HTTP statuses. Anything
// without a kind is an infrastructure failure and its detail is not exposed.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.SendError(c, fe.Code, "HTTP_ERROR", fe.Message, nil)
	}

	switch progression.Kind(err) {
	case progression.ErrNotFound:
		return utils.SendError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case progression.ErrConflict:
		return utils.SendError(c, fiber.StatusConflict, "CONFLICT", err.Error(), nil)
	case progression.ErrValidation:
		return utils.SendError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case progression.ErrBadRequest:
		return utils.SendError(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}

	slog.Error("Unhandled request error",
		slog.String("type", "http"),
		slog.String("path", c.Path()),
		slog.Any("error", err))
	return utils.SendError(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error", nil)
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		return c.Next()
	}
}
