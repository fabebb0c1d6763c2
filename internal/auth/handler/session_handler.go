package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/karthicware/ultra-bms-sub008/internal/auth/dto"
	autherror "github.com/karthicware/ultra-bms-sub008/internal/errors"
)

// ListSessions returns every live session of the calling user, with the one
// backing this request flagged as current.
func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	sessionID, _ := c.Locals("sessionID").(string)

	sessions, err := h.userService.GetActiveSessions(c.Context(), userID, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sessions"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sessions": sessions})
}

// RevokeSession revokes one of the caller's own sessions. A session owned by
// someone else is reported as not found so its existence leaks nothing.
func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	sessionID := c.Params("id")

	if err := h.userService.RevokeSession(c.Context(), userID, sessionID); err != nil {
		if errors.Is(err, autherror.ErrSessionNotFound) || errors.Is(err, autherror.ErrSessionNotOwned) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to revoke session"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.userService.GetAllUsers(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch users"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"users": users})
}

func (h *AuthHandler) UpdateUserRole(c *fiber.Ctx) error {
	userID := c.Params("id")

	var input dto.UpdateRoleInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.UpdateUserRole(c.Context(), userID, input.RoleID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "role updated"})
}

// GetUserSessions lists the live sessions of an arbitrary user for support
// and audit use.
func (h *AuthHandler) GetUserSessions(c *fiber.Ctx) error {
	userID := c.Params("id")

	sessions, err := h.userService.GetActiveSessions(c.Context(), userID, "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch sessions"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sessions": sessions})
}

func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("id")

	if err := h.userService.ForceLogoutByUserID(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to revoke sessions"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "all sessions revoked"})
}
