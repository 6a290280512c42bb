package middleware

import (
	"github.com/andy2076/school-chat-system/internal/httpx"
	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/gofiber/fiber/v2"
)

// RequireMinRole rejects callers whose role ranks below min in the
// admin > teacher > parent hierarchy.
func RequireMinRole(min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(models.Role)
		if !role.AtLeast(min) {
			return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
		}
		return c.Next()
	}
}
