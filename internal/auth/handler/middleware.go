package handler

import (
	"github.com/gofiber/fiber/v2"
)

// RequireAuth verifies the bearer token, rejects blacklisted tokens and dead
// sessions, and stashes the caller's identity in the request locals.
func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid authorization header"})
		}

		claims, session, err := h.userService.Authenticate(c.Context(), token)
		if err != nil {
			return errorResponse(c, err)
		}

		c.Locals("claims", claims)
		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("sessionID", session.ID)

		return c.Next()
	}
}

// RequireRole gates a route to callers whose token carries the given role.
// It must run after RequireAuth.
func (h *AuthHandler) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if got, _ := c.Locals("role").(string); got != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}

		return c.Next()
	}
}
