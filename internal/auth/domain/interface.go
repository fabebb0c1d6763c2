package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/karthicware/ultra-bms-sub008/internal/auth/domain UserRepository
//go:generate mockgen -destination=../../mocks/mock_session_repository.go -package=mocks github.com/karthicware/ultra-bms-sub008/internal/auth/domain SessionRepository
//go:generate mockgen -destination=../../mocks/mock_token_blacklist.go -package=mocks github.com/karthicware/ultra-bms-sub008/internal/auth/domain TokenBlacklist

import (
	"context"
	"time"

	"github.com/karthicware/ultra-bms-sub008/internal/auth/dto"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDWithRole(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error

	// RecordFailedLogin atomically increments the failed-attempt counter and
	// sets locked_until once the counter reaches maxAttempts.
	RecordFailedLogin(ctx context.Context, userID string, maxAttempts, lockoutMinutes int) error
	ResetLoginAttempts(ctx context.Context, userID string) error

	RecordLoginAttempt(ctx context.Context, email, ip, userAgent string, success bool) error
	UpsertTrustedDevice(ctx context.Context, userID, fingerprint, userAgent, ip string) error

	GetAllUsers(ctx context.Context) ([]dto.UserOutput, error)
	UpdateUserRole(ctx context.Context, userID string, roleID int) error
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByAccessTokenHash(ctx context.Context, hash string) (*Session, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*Session, error)

	// Rotate swaps both stored token hashes in a single guarded update and
	// reports whether this caller won. A false return on a live session means
	// the presented refresh hash was already rotated away.
	Rotate(ctx context.Context, sessionID, oldRefreshHash, newAccessHash, newRefreshHash string, expiresAt time.Time) (bool, error)

	ListActiveByUserID(ctx context.Context, userID string) ([]Session, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllByUserID(ctx context.Context, userID string) error
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	DeleteOldestByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenBlacklist records revoked token hashes until their natural expiry.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenHash, kind string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}
