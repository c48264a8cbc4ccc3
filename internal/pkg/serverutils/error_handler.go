package serverutils

import (
	"errors"

	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/store"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrNotFound can be wrapped by services for missing resources.
var ErrNotFound = errors.New("resource not found")

// ErrBadRequest can be wrapped by services for malformed input.
var ErrBadRequest = errors.New("bad request")

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var verrs validator.ValidationErrors

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &verrs), errors.Is(err, ErrBadRequest), errors.Is(err, crm.ErrUnknownKind):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, crm.ErrRecordNotFound), errors.Is(err, store.ErrSessionNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into JSON error responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			message = describeValidation(err)
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
