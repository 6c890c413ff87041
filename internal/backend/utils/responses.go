package utils

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/models"
)

const (
	HeaderRequestID = "X-Request-ID"

	accountIDKey = "account_id"
)

// SendJSON writes the envelope with the request id of the current request.
func SendJSON(c *fiber.Ctx, statusCode int, resp *models.APIResponse) error {
	return c.Status(statusCode).JSON(resp.WithRequestID(c.GetRespHeader(HeaderRequestID)))
}

func SendSuccess(c *fiber.Ctx, data interface{}, message string) error {
	return SendJSON(c, http.StatusOK, models.NewSuccessResponse(data, message))
}

func SendCreated(c *fiber.Ctx, data interface{}, message string) error {
	return SendJSON(c, http.StatusCreated, models.NewSuccessResponse(data, message))
}

func SendError(c *fiber.Ctx, statusCode int, code, message string, details map[string]string) error {
	return SendJSON(c, statusCode, models.NewErrorResponse(code, message, details))
}

func SendBadRequest(c *fiber.Ctx, message string, details map[string]string) error {
	return SendError(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func SendUnauthorized(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func SendTooManyRequests(c *fiber.Ctx) error {
	return SendError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
}

// SetAccountID stores the authenticated account on the request.
func SetAccountID(c *fiber.Ctx, id int64) {
	c.Locals(accountIDKey, id)
}

// AccountID returns the authenticated account, if any.
func AccountID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(accountIDKey).(int64)
	return id, ok
}

// GetIPAddress returns the originating client address. Only the first hop
// of X-Forwarded-For is used.
func GetIPAddress(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := c.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return c.IP()
}
