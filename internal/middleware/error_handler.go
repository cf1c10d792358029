package middleware

import (
	"bazaar-backend/internal/pkg/apperrors"
	"bazaar-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Typed application errors map to
// their status code; everything else is a 500 with a generic message so store
// internals never leak.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Message, e.Code, nil)
	}

	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	switch apperrors.KindOf(err) {
	case apperrors.Validation:
		code, message = fiber.StatusBadRequest, err.Error()
	case apperrors.NotFound:
		code, message = fiber.StatusNotFound, err.Error()
	case apperrors.Unauthorized:
		code, message = fiber.StatusForbidden, err.Error()
	case apperrors.InvalidTransition:
		code, message = fiber.StatusConflict, err.Error()
	case apperrors.Conflict:
		// A diagnosed race is still an internal failure to the caller.
		code = fiber.StatusInternalServerError
	}
	return response.Error(c, message, code, nil)
}
