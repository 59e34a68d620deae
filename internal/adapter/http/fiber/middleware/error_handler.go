package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/service/command"
)

// ErrorHandler maps domain and command errors onto HTTP statuses so
// handlers can return errors unwrapped.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		var cmdErr *command.CommandError
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, domain.ErrConflict):
			code = fiber.StatusConflict
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusBadRequest
		case errors.As(err, &cmdErr):
			switch cmdErr.Kind {
			case command.KindNotConnected:
				code = fiber.StatusServiceUnavailable
			case command.KindTimeout:
				code = fiber.StatusGatewayTimeout
			case command.KindUnsupportedVersion:
				code = fiber.StatusConflict
			case command.KindCallError:
				code = fiber.StatusBadGateway
			}
		}

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
