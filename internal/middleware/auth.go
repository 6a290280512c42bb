package middleware

import (
	"errors"
	"strings"

	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
)

// AuthRequired validates the bearer credential and stores the session
// claims in the request context.
func AuthRequired(authService *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return httpx.Unauthorized(c, "missing_credential", "Missing credential")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
		}

		claims, err := authService.ValidateSession(parts[1])
		if err != nil {
			if errors.Is(err, service.ErrCredentialExpired) {
				return httpx.Unauthorized(c, "credential_expired", "Credential expired")
			}
			return httpx.Unauthorized(c, "credential_invalid", "Invalid credential")
		}

		// Store session info in context
		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// LocalClaims pulls the validated session claims back out of the
// request context.
func LocalClaims(c *fiber.Ctx) (*service.SessionClaims, bool) {
	claims, ok := c.Locals("claims").(*service.SessionClaims)
	return claims, ok
}
