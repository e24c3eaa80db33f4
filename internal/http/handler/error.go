package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"invofi/internal/http/middleware"
	"invofi/internal/ocr"
	"invofi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "VALIDATION_ERROR", "NOT_FOUND")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Validation failures and verification conflicts carry their message through;
// anything unrecognized collapses to a generic 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", ve.Error())
	}
	var vi *service.VerificationIncompleteError
	if errors.As(err, &vi) {
		return writeError(c, fiber.StatusConflict, "VERIFICATION_INCOMPLETE", vi.Error())
	}
	var le *service.LifecycleError
	if errors.As(err, &le) {
		return writeError(c, fiber.StatusConflict, "INVALID_TRANSITION", le.Error())
	}
	if ocr.IsDecodeError(err) {
		return writeError(c, fiber.StatusUnprocessableEntity, "DECODE_ERROR", "document could not be decoded; upload a clearer scan or PDF")
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "invoice not found")
	case errors.Is(err, service.ErrSessionNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "verification session not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
