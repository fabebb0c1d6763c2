package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/karthicware/ultra-bms-sub008/config"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/domain"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/dto"
	autherror "github.com/karthicware/ultra-bms-sub008/internal/errors"
	"github.com/karthicware/ultra-bms-sub008/internal/metrics"
	"github.com/karthicware/ultra-bms-sub008/pkg/constant"
)

const minPasswordLength = 8

type UserService struct {
	repo         domain.UserRepository
	sessions     domain.SessionRepository
	blacklist    domain.TokenBlacklist
	tokenService TokenGenerator
	cfg          *config.Config
}

func NewUserService(repo domain.UserRepository, sessions domain.SessionRepository,
	blacklist domain.TokenBlacklist, tokenService TokenGenerator, cfg *config.Config) *UserService {
	return &UserService{
		repo:         repo,
		sessions:     sessions,
		blacklist:    blacklist,
		tokenService: tokenService,
		cfg:          cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", autherror.ErrValidation)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", autherror.ErrValidation, minPasswordLength)
	}

	existingUser, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingUser != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(input.FullName),
		Phone:        strings.TrimSpace(input.Phone),
		RoleID:       constant.DefaultUserRoleID,
		RoleName:     constant.DefaultUserRoleName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Create is the arbiter under concurrent registration: the unique index
	// on email turns the losing insert into ErrEmailAlreadyInUse.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.Inc()
	log.Info().Str("user_id", user.ID).Str("ip", input.IPAddress).Msg("user registered")

	return user, nil
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	email := normalizeEmail(input.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		_ = s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, input.UserAgent, false)
		metrics.LoginFailureTotal.Inc()
		return nil, autherror.ErrInvalidCredentials
	}

	now := time.Now()

	// Locked accounts are rejected before the password is even checked, so a
	// brute-force run learns nothing further while the lock holds.
	if user.Locked(now) {
		_ = s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, input.UserAgent, false)
		metrics.LoginFailureTotal.Inc()
		log.Warn().Str("user_id", user.ID).Str("ip", input.IPAddress).Msg("login attempt on locked account")
		return nil, autherror.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		if err := s.repo.RecordFailedLogin(ctx, user.ID, s.cfg.LoginMaxAttempts, s.cfg.LockoutMinutes); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record failed login")
		} else if user.FailedLoginAttempts+1 >= s.cfg.LoginMaxAttempts {
			metrics.AccountLockoutsTotal.Inc()
			log.Warn().Str("user_id", user.ID).Int("attempts", user.FailedLoginAttempts+1).
				Msg("account locked after repeated login failures")
		}
		_ = s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, input.UserAgent, false)
		metrics.LoginFailureTotal.Inc()
		return nil, autherror.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.repo.ResetLoginAttempts(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	sessionID := uuid.New().String()

	accessToken, refreshToken, _, err := s.tokenService.Generate(user.ID, user.Email, user.RoleName, sessionID)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:                sessionID,
		UserID:            user.ID,
		AccessTokenHash:   HashToken(accessToken),
		RefreshTokenHash:  HashToken(refreshToken),
		DeviceFingerprint: input.Fingerprint,
		IPAddress:         input.IPAddress,
		UserAgent:         input.UserAgent,
		CreatedAt:         now,
		LastSeenAt:        now,
		ExpiresAt:         now.Add(s.tokenService.GetRefreshTokenExpiry()),
		Revoked:           false,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertTrustedDevice(ctx, user.ID, input.Fingerprint, input.UserAgent, input.IPAddress); err != nil {
		return nil, err
	}

	if err := s.repo.RecordLoginAttempt(ctx, email, input.IPAddress, input.UserAgent, true); err != nil {
		return nil, err
	}

	// Trim oldest session if the per-user cap was exceeded
	activeCount, err := s.sessions.CountActiveByUserID(ctx, user.ID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to count active sessions")
	} else if activeCount > s.cfg.MaxActiveSessions {
		if err := s.sessions.DeleteOldestByUserID(ctx, user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to delete oldest session")
		}
	}

	metrics.LoginSuccessTotal.Inc()
	log.Info().Str("user_id", user.ID).Str("session_id", sessionID).Str("ip", input.IPAddress).Msg("user logged in")

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    constant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
		User: &dto.UserOutput{
			ID:        user.ID,
			Email:     user.Email,
			FullName:  user.FullName,
			Phone:     user.Phone,
			RoleID:    user.RoleID,
			RoleName:  user.RoleName,
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		},
	}, nil
}

func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	// Step 1: Verify the refresh token signature, expiry and kind
	claims, err := s.tokenService.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, err
	}

	oldRefreshHash := HashToken(input.RefreshToken)

	// Step 2: Resolve the session the token is bound to
	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, autherror.ErrSessionNotFound
	}
	if session.Revoked {
		return nil, autherror.ErrSessionRevoked
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, autherror.ErrSessionExpired
	}

	// Step 3: Re-fetch user (with role info) to embed role into access token
	user, err := s.repo.GetByIDWithRole(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, fmt.Errorf("user not found for token refresh")
	}

	accessToken, newRefreshToken, _, err := s.tokenService.Generate(user.ID, user.Email, user.RoleName, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	expiresAt := time.Now().Add(s.tokenService.GetRefreshTokenExpiry())

	// Step 4: Swap the token pair with a compare-and-set on the old hash.
	// Among concurrent refreshes with the same token exactly one wins.
	won, err := s.sessions.Rotate(ctx, session.ID, oldRefreshHash,
		HashToken(accessToken), HashToken(newRefreshToken), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	if !won {
		// The presented token was already rotated away: either a replayed
		// stolen token or a racing client. Kill the session so neither
		// party keeps a valid pair.
		metrics.RefreshReuseDetectedTotal.Inc()
		log.Warn().Str("user_id", session.UserID).Str("session_id", session.ID).
			Str("ip", input.IPAddress).Msg("refresh token reuse detected, revoking session")
		if err := s.sessions.Revoke(ctx, session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to revoke session after reuse")
		}
		return nil, autherror.ErrReuseDetected
	}

	metrics.TokenRefreshTotal.Inc()

	// Step 5: Return token pair
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    constant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
	}, nil
}

// Logout revokes whatever the caller can still present. Invalid or expired
// tokens are ignored so logout stays idempotent, but a failed blacklist write
// is an error: the access token must be dead before logout reports success.
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	revoked := false

	if accessToken != "" {
		if claims, err := s.tokenService.VerifyAccessToken(accessToken); err == nil {
			hash := HashToken(accessToken)
			if err := s.blacklist.Revoke(ctx, hash, constant.TokenKindAccess, claims.ExpiresAt.Time); err != nil {
				return fmt.Errorf("failed to blacklist access token: %w", err)
			}
			if err := s.sessions.Revoke(ctx, claims.SessionID); err != nil {
				return err
			}
			revoked = true
		}
	}

	if refreshToken != "" {
		if claims, err := s.tokenService.VerifyRefreshToken(refreshToken); err == nil {
			hash := HashToken(refreshToken)
			if err := s.blacklist.Revoke(ctx, hash, constant.TokenKindRefresh, claims.ExpiresAt.Time); err != nil {
				return fmt.Errorf("failed to blacklist refresh token: %w", err)
			}
			if err := s.sessions.Revoke(ctx, claims.SessionID); err != nil {
				return err
			}
			revoked = true
		}
	}

	if revoked {
		metrics.SessionsRevokedTotal.Inc()
	}

	return nil
}

// Authenticate resolves a bearer token to its live session. The token must
// verify, must not be blacklisted, and its session must exist, be unrevoked
// and unexpired.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*JWTCustomClaims, *domain.Session, error) {
	claims, err := s.tokenService.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, nil, err
	}

	hash := HashToken(accessToken)

	isRevoked, err := s.blacklist.IsRevoked(ctx, hash)
	if err != nil {
		// Fail closed: an unreachable blacklist never admits a token.
		return nil, nil, err
	}
	if isRevoked {
		return nil, nil, autherror.ErrTokenRevoked
	}

	session, err := s.sessions.GetByAccessTokenHash(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, autherror.ErrSessionNotFound
	}
	if session.Revoked {
		return nil, nil, autherror.ErrSessionRevoked
	}
	if !session.Live(time.Now()) {
		return nil, nil, autherror.ErrSessionExpired
	}

	return claims, session, nil
}

func (s *UserService) GetActiveSessions(ctx context.Context, userID, currentSessionID string) ([]dto.SessionOutput, error) {
	sessions, err := s.sessions.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, dto.SessionOutput{
			ID:                sess.ID,
			DeviceFingerprint: sess.DeviceFingerprint,
			IPAddress:         sess.IPAddress,
			UserAgent:         sess.UserAgent,
			CreatedAt:         sess.CreatedAt,
			LastSeenAt:        sess.LastSeenAt,
			ExpiresAt:         sess.ExpiresAt,
			Current:           sess.ID == currentSessionID,
		})
	}

	return out, nil
}

// RevokeSession revokes one of the caller's own sessions. A session that
// exists but belongs to someone else reports ErrSessionNotOwned so the
// handler can hide its existence.
func (s *UserService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return autherror.ErrSessionNotFound
	}
	if session.UserID != userID {
		return autherror.ErrSessionNotOwned
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}

	metrics.SessionsRevokedTotal.Inc()
	log.Info().Str("user_id", userID).Str("session_id", sessionID).Msg("session revoked")

	return nil
}

func (s *UserService) ForceLogoutByUserID(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}

	metrics.SessionsRevokedTotal.Inc()
	log.Info().Str("user_id", userID).Msg("all sessions revoked")

	return nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]dto.UserOutput, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *UserService) UpdateUserRole(ctx context.Context, userID string, roleID int) error {
	if roleID <= 0 {
		return fmt.Errorf("%w: invalid role id", autherror.ErrValidation)
	}
	return s.repo.UpdateUserRole(ctx, userID, roleID)
}
