package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karthicware/ultra-bms-sub008/config"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/dto"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/service"
	autherror "github.com/karthicware/ultra-bms-sub008/internal/errors"
	"github.com/karthicware/ultra-bms-sub008/pkg/constant"
)

type AuthHandler struct {
	userService  *service.UserService
	tokenService service.TokenGenerator
	cfg          *config.Config
}

func NewAuthHandler(userService *service.UserService, tokenService service.TokenGenerator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{userService: userService, tokenService: tokenService, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	user, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UserOutput{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		RoleID:    user.RoleID,
		RoleName:  user.RoleName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	// Capture metadata
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())
	input.Fingerprint = c.Get("X-Device-Fingerprint")

	tokens, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	// The body is optional here: browser clients carry the refresh token in
	// the scoped cookie and send no body at all.
	_ = c.BodyParser(&input)

	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(constant.RefreshCookieName)
	}

	if input.RefreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	}

	input.Fingerprint = c.Get("X-Device-Fingerprint")
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	// The rotated refresh token travels back only in the cookie.
	return c.Status(fiber.StatusOK).JSON(dto.RefreshResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   tokens.TokenType,
		ExpiresIn:   tokens.ExpiresIn,
	})
}

// Logout revokes whatever tokens the request carries. It succeeds even when
// both are already dead, but reports an error if a still-valid token could
// not be blacklisted.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	accessToken := extractBearer(c.Get(fiber.HeaderAuthorization))

	refreshToken := c.Cookies(constant.RefreshCookieName)
	if refreshToken == "" {
		var input dto.LogoutInput
		_ = c.BodyParser(&input)
		refreshToken = input.RefreshToken
	}

	if err := h.userService.Logout(c.Context(), accessToken, refreshToken); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to log out"})
	}

	h.clearRefreshCookie(c)

	return c.SendStatus(fiber.StatusNoContent)
}

// setRefreshCookie scopes the refresh token to the auth endpoints so the
// long-lived credential is never replayed against the rest of the API.
func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshCookieName,
		Value:    token,
		Path:     constant.RefreshCookiePath,
		MaxAge:   int(h.tokenService.GetRefreshTokenExpiry().Seconds()),
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// clearRefreshCookie mirrors the scope of setRefreshCookie: browsers only
// drop a cookie when the deletion matches its path.
func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshCookieName,
		Value:    "",
		Path:     constant.RefreshCookiePath,
		Expires:  time.Now().Add(-time.Hour),
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}

// errorResponse maps service errors to HTTP statuses. Credential and token
// failures collapse into generic messages so a caller cannot probe which
// part of the check failed.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, autherror.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already in use"})
	case errors.Is(err, autherror.ErrAccountLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"error": "account temporarily locked"})
	case errors.Is(err, autherror.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	case errors.Is(err, autherror.ErrTokenExpired),
		errors.Is(err, autherror.ErrTokenMalformed),
		errors.Is(err, autherror.ErrTokenSignatureInvalid),
		errors.Is(err, autherror.ErrInvalidToken),
		errors.Is(err, autherror.ErrTokenRevoked),
		errors.Is(err, autherror.ErrSessionNotFound),
		errors.Is(err, autherror.ErrSessionRevoked),
		errors.Is(err, autherror.ErrSessionExpired),
		errors.Is(err, autherror.ErrReuseDetected):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	case errors.Is(err, autherror.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
