package domain

import "time"

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	FullName            string
	Phone               string
	RoleID              int
	RoleName            string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the account lockout is still in force at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Session is one authenticated device/browser context. Only one-way hashes of
// the issued tokens are stored, never the raw values.
type Session struct {
	ID                string
	UserID            string
	AccessTokenHash   string
	RefreshTokenHash  string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	CreatedAt         time.Time
	LastSeenAt        time.Time
	ExpiresAt         time.Time
	Revoked           bool
}

// Live reports whether the session is neither revoked nor expired at now.
func (s *Session) Live(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	UserAgent   string
	AttemptTime time.Time
	Successful  bool
}

type TrustedDevice struct {
	ID                string
	UserID            string
	DeviceFingerprint string
	UserAgent         string
	IPAddress         string
	LastSeen          time.Time
	CreatedAt         time.Time
}
