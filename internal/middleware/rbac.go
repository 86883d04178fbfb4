package middleware

import (
	"strings"

	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/gofiber/fiber/v2"
)

// RequireRole gates admin-only surfaces (publishing app versions).
func RequireRole(role string) fiber.Handler {
	role = strings.ToLower(strings.TrimSpace(role))
	return func(c *fiber.Ctx) error {
		v := c.Locals("role")
		userRole, _ := v.(string)
		if strings.ToLower(userRole) != role {
			return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
		}
		return c.Next()
	}
}
