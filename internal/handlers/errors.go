package handlers

import (
	"errors"

	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
)

// respondServiceError maps the service error taxonomy onto the stable
// HTTP error surface. Anything unrecognized becomes a 500 without
// leaking internals.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return httpx.BadRequest(c, "validation_failed", "Invalid input")
	case errors.Is(err, service.ErrCredentialInvalid):
		return httpx.Unauthorized(c, "credential_invalid", "Invalid credential")
	case errors.Is(err, service.ErrCredentialExpired):
		return httpx.Unauthorized(c, "credential_expired", "Credential expired")
	case errors.Is(err, service.ErrForbidden):
		return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
	case errors.Is(err, service.ErrNotFound):
		return httpx.NotFound(c, "not_found", "Not found")
	case errors.Is(err, service.ErrCodeInvalid):
		return httpx.BadRequest(c, "code_invalid", "Enrollment code not found")
	case errors.Is(err, service.ErrCodeExpired):
		return httpx.BadRequest(c, "code_expired", "Enrollment code expired")
	case errors.Is(err, service.ErrCodeAlreadyUsed):
		return httpx.Conflict(c, "code_already_used", "Enrollment code already used")
	case errors.Is(err, service.ErrInvalidMembership):
		return httpx.Conflict(c, "invalid_membership", "Invalid membership change")
	case errors.Is(err, service.ErrUnavailable):
		return httpx.Unavailable(c, "storage_unavailable")
	default:
		return httpx.Internal(c, "internal_error")
	}
}
