package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/utils"
	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
)

// LoggingMiddleware tags each request with an id and logs it once handled.
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(utils.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(utils.HeaderRequestID, requestID)

		err := c.Next()
		if err != nil {
			// Let the error handler write the status before it is logged.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("ip", utils.GetIPAddress(c)),
		}
		if accountID, ok := utils.AccountID(c); ok {
			attrs = append(attrs, slog.Int64("account_id", accountID))
		}
		if err != nil {
			attrs = append(attrs, slog.String("reason", err.Error()))
		}
		logger.LogRequest(c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start), attrs...)

		return nil
	}
}
