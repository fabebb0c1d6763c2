package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/karthicware/ultra-bms-sub008/internal/auth/domain"
)

type SessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, access_token_hash, refresh_token_hash, device_fingerprint,
		       ip_address, user_agent, created_at, last_seen_at, expires_at, revoked`

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.UserID, s.AccessTokenHash, s.RefreshTokenHash, s.DeviceFingerprint,
		s.IPAddress, s.UserAgent, s.CreatedAt, s.LastSeenAt, s.ExpiresAt, s.Revoked)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 LIMIT 1;`
	return r.getOne(ctx, query, sessionID)
}

func (r *SessionRepository) GetByAccessTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE access_token_hash = $1 LIMIT 1;`
	return r.getOne(ctx, query, tokenHash)
}

func (r *SessionRepository) GetByRefreshTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token_hash = $1 LIMIT 1;`
	return r.getOne(ctx, query, tokenHash)
}

func (r *SessionRepository) getOne(ctx context.Context, query string, arg any) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, query, arg)

	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.AccessTokenHash, &s.RefreshTokenHash, &s.DeviceFingerprint,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt, &s.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

// Rotate swaps the session's token pair in a single compare-and-set. The
// update only lands when the presented refresh hash is still the current one
// and the session is not revoked, so among concurrent refreshes exactly one
// observes won == true.
func (r *SessionRepository) Rotate(ctx context.Context, sessionID, oldRefreshHash, newAccessHash,
	newRefreshHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET access_token_hash = $3,
		    refresh_token_hash = $4,
		    last_seen_at = now(),
		    expires_at = $5
		WHERE id = $1 AND refresh_token_hash = $2 AND revoked = FALSE
	`, sessionID, oldRefreshHash, newAccessHash, newRefreshHash, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to rotate session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *SessionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()
		ORDER BY last_seen_at DESC;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.AccessTokenHash, &s.RefreshTokenHash, &s.DeviceFingerprint,
			&s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt, &s.Revoked); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session rows: %w", err)
	}

	return sessions, nil
}

// Revoke marks a session revoked. Revoking an already revoked session is a
// no-op, not an error.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *SessionRepository) RevokeAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(id) FROM sessions
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

func (r *SessionRepository) DeleteOldestByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM sessions
		WHERE id = (
			SELECT id FROM sessions
			WHERE user_id = $1
			ORDER BY created_at ASC
			LIMIT 1
		)
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete oldest session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry. Revoked rows are kept
// until then so stale refresh attempts still resolve to a revoked session.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
