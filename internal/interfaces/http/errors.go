package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/domain"
)

// writeError traduce errores de dominio a status y código HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrEmptySale):
		status, code = fiber.StatusBadRequest, "EMPTY_SALE"
	case errors.Is(err, domain.ErrTotalMismatch):
		status, code = fiber.StatusBadRequest, "TOTAL_MISMATCH"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrShiftAlreadyOpen):
		status, code = fiber.StatusConflict, "SHIFT_ALREADY_OPEN"
	case errors.Is(err, domain.ErrShiftClosed):
		status, code = fiber.StatusConflict, "SHIFT_CLOSED"
	case errors.Is(err, domain.ErrInvalidState):
		status, code = fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrChainIntegrity):
		status, code = fiber.StatusLocked, "CHAIN_INTEGRITY"
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrConcurrencyConflict):
		status, code = fiber.StatusServiceUnavailable, "TRANSIENT"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
