package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthicware/ultra-bms-sub008/config"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/domain"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/handler"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/service"
	autherror "github.com/karthicware/ultra-bms-sub008/internal/errors"
	"github.com/karthicware/ultra-bms-sub008/internal/mocks"
	authconstant "github.com/karthicware/ultra-bms-sub008/pkg/constant"
)

// TestRegisterRoutes verifies that all routes are mounted correctly.
func TestRegisterRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockSessions := mocks.NewMockSessionRepository(ctrl)
	mockBlacklist := mocks.NewMockTokenBlacklist(ctrl)
	mockTokenService := mocks.NewMockTokenGenerator(ctrl)
	cfg := &config.Config{}
	userService := service.NewUserService(mockRepo, mockSessions, mockBlacklist, mockTokenService, cfg)
	authHandler := handler.NewAuthHandler(userService, mockTokenService, cfg)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPost, "/api/v1/auth/refresh"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/auth/sessions"},
		{http.MethodDelete, "/api/v1/auth/sessions/some-id"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodPatch, "/api/v1/admin/user/some-id/role"},
		{http.MethodGet, "/api/v1/admin/user/some-id/sessions"},
		{http.MethodDelete, "/api/v1/admin/user/some-id/sessions"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/healthz"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s_%s_exists", tc.method, tc.path), func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)

			// We only care that the route exists. A 404 means it doesn't.
			// The actual handlers will return other codes (e.g., 400 Bad Request
			// for missing body or 401 for missing auth), which is fine for this
			// existence check.
			assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}

// TestRequireAuthMiddleware exercises the bearer token gate in front of the
// protected routes.
func TestRequireAuthMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockSessions := mocks.NewMockSessionRepository(ctrl)
	mockBlacklist := mocks.NewMockTokenBlacklist(ctrl)
	mockTokenService := mocks.NewMockTokenGenerator(ctrl)
	cfg := &config.Config{}
	userService := service.NewUserService(mockRepo, mockSessions, mockBlacklist, mockTokenService, cfg)
	authHandler := handler.NewAuthHandler(userService, mockTokenService, cfg)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	protectedRoute := "/api/v1/auth/sessions"

	t.Run("fails without auth header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, protectedRoute, nil)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("fails with malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, protectedRoute, nil)
		req.Header.Set("Authorization", "BearerInvalidToken") // No space
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("fails with expired token", func(t *testing.T) {
		mockTokenService.EXPECT().VerifyAccessToken("expired-token").Return(nil, autherror.ErrTokenExpired)

		req := httptest.NewRequest(http.MethodGet, protectedRoute, nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("fails with blacklisted token", func(t *testing.T) {
		claims := &service.JWTCustomClaims{UserID: "user-123", SessionID: "session-123"}
		mockTokenService.EXPECT().VerifyAccessToken("revoked-token").Return(claims, nil)
		mockBlacklist.EXPECT().IsRevoked(gomock.Any(), service.HashToken("revoked-token")).Return(true, nil)

		req := httptest.NewRequest(http.MethodGet, protectedRoute, nil)
		req.Header.Set("Authorization", "Bearer revoked-token")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("succeeds with live token and session", func(t *testing.T) {
		claims := &service.JWTCustomClaims{
			UserID:    "user-123",
			Role:      "user",
			SessionID: "session-123",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		hash := service.HashToken("live-token")
		session := &domain.Session{
			ID:              "session-123",
			UserID:          "user-123",
			AccessTokenHash: hash,
			ExpiresAt:       time.Now().Add(time.Hour),
		}

		mockTokenService.EXPECT().VerifyAccessToken("live-token").Return(claims, nil)
		mockBlacklist.EXPECT().IsRevoked(gomock.Any(), hash).Return(false, nil)
		mockSessions.EXPECT().GetByAccessTokenHash(gomock.Any(), hash).Return(session, nil)
		mockSessions.EXPECT().ListActiveByUserID(gomock.Any(), "user-123").Return([]domain.Session{*session}, nil)

		req := httptest.NewRequest(http.MethodGet, protectedRoute, nil)
		req.Header.Set("Authorization", "Bearer live-token")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

// TestRequireRoleMiddleware provides focused testing for the admin-only endpoints.
func TestRequireRoleMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockSessions := mocks.NewMockSessionRepository(ctrl)
	mockBlacklist := mocks.NewMockTokenBlacklist(ctrl)
	mockTokenService := mocks.NewMockTokenGenerator(ctrl)
	cfg := &config.Config{}
	userService := service.NewUserService(mockRepo, mockSessions, mockBlacklist, mockTokenService, cfg)
	authHandler := handler.NewAuthHandler(userService, mockTokenService, cfg)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler)

	adminRoute := "/api/v1/admin/user/admin-test-id/sessions"

	expectAuthenticated := func(token, role string) {
		claims := &service.JWTCustomClaims{
			UserID:    "caller-id",
			Role:      role,
			SessionID: "caller-session",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		hash := service.HashToken(token)
		session := &domain.Session{
			ID:              "caller-session",
			UserID:          "caller-id",
			AccessTokenHash: hash,
			ExpiresAt:       time.Now().Add(time.Hour),
		}

		mockTokenService.EXPECT().VerifyAccessToken(token).Return(claims, nil)
		mockBlacklist.EXPECT().IsRevoked(gomock.Any(), hash).Return(false, nil)
		mockSessions.EXPECT().GetByAccessTokenHash(gomock.Any(), hash).Return(session, nil)
	}

	t.Run("fails without auth header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, adminRoute, nil)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("fails for non-admin user", func(t *testing.T) {
		expectAuthenticated("user-token", authconstant.RoleUser)

		req := httptest.NewRequest(http.MethodDelete, adminRoute, nil)
		req.Header.Set("Authorization", "Bearer user-token")
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("succeeds for admin user", func(t *testing.T) {
		expectAuthenticated("admin-token", authconstant.RoleAdmin)
		mockSessions.EXPECT().RevokeAllByUserID(gomock.Any(), "admin-test-id").Return(nil)

		req := httptest.NewRequest(http.MethodDelete, adminRoute, nil)
		req.Header.Set("Authorization", "Bearer admin-token")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
