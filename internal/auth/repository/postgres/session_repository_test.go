package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthicware/ultra-bms-sub008/internal/auth/domain"
	repo "github.com/karthicware/ultra-bms-sub008/internal/auth/repository/postgres"
)

var sessionCols = []string{
	"id", "user_id", "access_token_hash", "refresh_token_hash", "device_fingerprint",
	"ip_address", "user_agent", "created_at", "last_seen_at", "expires_at", "revoked",
}

func sessionRow(s *domain.Session) *pgxmock.Rows {
	return pgxmock.NewRows(sessionCols).
		AddRow(s.ID, s.UserID, s.AccessTokenHash, s.RefreshTokenHash, s.DeviceFingerprint,
			s.IPAddress, s.UserAgent, s.CreatedAt, s.LastSeenAt, s.ExpiresAt, s.Revoked)
}

// TestCreateSession covers the session Create method.
func TestCreateSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	now := time.Now()
	s := &domain.Session{
		ID:               "session-123",
		UserID:           "user-123",
		AccessTokenHash:  "access-hash",
		RefreshTokenHash: "refresh-hash",
		IPAddress:        "127.0.0.1",
		UserAgent:        "Go-http-client/1.1",
		CreatedAt:        now,
		LastSeenAt:       now,
		ExpiresAt:        now.Add(24 * time.Hour),
	}

	args := []any{
		s.ID, s.UserID, s.AccessTokenHash, s.RefreshTokenHash, s.DeviceFingerprint,
		s.IPAddress, s.UserAgent, s.CreatedAt, s.LastSeenAt, s.ExpiresAt, s.Revoked,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := r.Create(ctx, s)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(args...).
			WillReturnError(fmt.Errorf("db error"))

		err := r.Create(ctx, s)
		assert.Error(t, err)
	})
}

// TestGetSessionByID covers the GetByID method.
func TestGetSessionByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	now := time.Now()
	expected := &domain.Session{
		ID:               "session-123",
		UserID:           "user-123",
		AccessTokenHash:  "access-hash",
		RefreshTokenHash: "refresh-hash",
		CreatedAt:        now,
		LastSeenAt:       now,
		ExpiresAt:        now.Add(24 * time.Hour),
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs(expected.ID).
			WillReturnRows(sessionRow(expected))

		s, err := r.GetByID(ctx, expected.ID)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, s.ID)
		assert.Equal(t, expected.RefreshTokenHash, s.RefreshTokenHash)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		s, err := r.GetByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs(expected.ID).
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.GetByID(ctx, expected.ID)
		assert.Error(t, err)
	})
}

// TestGetSessionByTokenHash covers the token hash lookup methods.
func TestGetSessionByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	now := time.Now()
	expected := &domain.Session{
		ID:               "session-123",
		UserID:           "user-123",
		AccessTokenHash:  "access-hash",
		RefreshTokenHash: "refresh-hash",
		CreatedAt:        now,
		LastSeenAt:       now,
		ExpiresAt:        now.Add(24 * time.Hour),
	}

	t.Run("by access token hash", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs(expected.AccessTokenHash).
			WillReturnRows(sessionRow(expected))

		s, err := r.GetByAccessTokenHash(ctx, expected.AccessTokenHash)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, s.ID)
	})

	t.Run("by refresh token hash", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs(expected.RefreshTokenHash).
			WillReturnRows(sessionRow(expected))

		s, err := r.GetByRefreshTokenHash(ctx, expected.RefreshTokenHash)
		require.NoError(t, err)
		assert.Equal(t, expected.ID, s.ID)
	})

	t.Run("unknown hash returns nil", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("unknown-hash").
			WillReturnError(pgx.ErrNoRows)

		s, err := r.GetByRefreshTokenHash(ctx, "unknown-hash")
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}

// TestRotateSession covers the compare-and-set rotation.
func TestRotateSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	sessionID := "session-123"
	expiresAt := time.Now().Add(24 * time.Hour)

	t.Run("winner updates exactly one row", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions").
			WithArgs(sessionID, "old-refresh", "new-access", "new-refresh", expiresAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		won, err := r.Rotate(ctx, sessionID, "old-refresh", "new-access", "new-refresh", expiresAt)
		require.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("stale hash loses the race", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions").
			WithArgs(sessionID, "stale-refresh", "new-access", "new-refresh", expiresAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		won, err := r.Rotate(ctx, sessionID, "stale-refresh", "new-access", "new-refresh", expiresAt)
		require.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions").
			WithArgs(sessionID, "old-refresh", "new-access", "new-refresh", expiresAt).
			WillReturnError(fmt.Errorf("db error"))

		won, err := r.Rotate(ctx, sessionID, "old-refresh", "new-access", "new-refresh", expiresAt)
		assert.Error(t, err)
		assert.False(t, won)
	})
}

// TestListActiveSessionsByUserID covers the ListActiveByUserID method.
func TestListActiveSessionsByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	userID := "user-123"
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(sessionCols).
			AddRow("session-1", userID, "ah-1", "rh-1", "fp-1", "10.0.0.1", "agent-1", now, now, now.Add(time.Hour), false).
			AddRow("session-2", userID, "ah-2", "rh-2", "fp-2", "10.0.0.2", "agent-2", now, now.Add(-time.Hour), now.Add(time.Hour), false)

		mock.ExpectQuery("SELECT id, user_id").
			WithArgs(userID).
			WillReturnRows(rows)

		sessions, err := r.ListActiveByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
		assert.Equal(t, "session-1", sessions[0].ID)
		assert.Equal(t, "10.0.0.2", sessions[1].IPAddress)
	})

	t.Run("database error on row scan", func(t *testing.T) {
		rows := pgxmock.NewRows(sessionCols).
			AddRow("session-1", userID, "ah-1", "rh-1", "fp-1", "10.0.0.1", "agent-1", now, now, now.Add(time.Hour), "not-a-bool")

		mock.ExpectQuery("SELECT id, user_id").
			WithArgs(userID).
			WillReturnRows(rows)

		sessions, err := r.ListActiveByUserID(ctx, userID)
		assert.Error(t, err)
		assert.Nil(t, sessions)
		assert.Contains(t, err.Error(), "failed to scan session row")
	})
}

// TestRevokeSession covers the Revoke method.
func TestRevokeSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	sessionID := "session-to-revoke"

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions SET revoked = TRUE WHERE id = \\$1").
			WithArgs(sessionID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := r.Revoke(ctx, sessionID)
		assert.NoError(t, err)
	})

	t.Run("already revoked is a no-op", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions SET revoked = TRUE WHERE id = \\$1").
			WithArgs(sessionID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := r.Revoke(ctx, sessionID)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions SET revoked = TRUE WHERE id = \\$1").
			WithArgs(sessionID).
			WillReturnError(fmt.Errorf("db error"))

		err := r.Revoke(ctx, sessionID)
		assert.Error(t, err)
	})
}

// TestRevokeAllSessionsByUserID tests the RevokeAllByUserID method.
func TestRevokeAllSessionsByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repository := repo.NewSessionRepository(mock)
	userID := "user-to-logout"

	// Define a context to use in the tests
	ctx := context.Background()

	mock.ExpectExec("UPDATE sessions SET revoked = TRUE WHERE user_id = \\$1 AND revoked = FALSE").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 5)) // Assume 5 sessions were revoked

	err = repository.RevokeAllByUserID(ctx, userID)
	require.NoError(t, err)

	// You can also test the error case
	mock.ExpectExec("UPDATE sessions").
		WithArgs(userID).
		WillReturnError(fmt.Errorf("db error"))

	err = repository.RevokeAllByUserID(ctx, userID)
	require.Error(t, err)
}

// TestCountActiveSessionsByUserID covers the CountActiveByUserID method.
func TestCountActiveSessionsByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	userID := "user-123"

	t.Run("success", func(t *testing.T) {
		expectedCount := 3
		mock.ExpectQuery("SELECT COUNT\\(id\\)").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(expectedCount))

		count, err := r.CountActiveByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, expectedCount, count)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(id\\)").
			WithArgs(userID).
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.CountActiveByUserID(ctx, userID)
		assert.Error(t, err)
	})
}

// TestDeleteOldestSessionByUserID covers the DeleteOldestByUserID method.
func TestDeleteOldestSessionByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)
	userID := "user-123"

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM sessions").
			WithArgs(userID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := r.DeleteOldestByUserID(ctx, userID)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM sessions").
			WithArgs(userID).
			WillReturnError(fmt.Errorf("db error"))

		err := r.DeleteOldestByUserID(ctx, userID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete oldest session")
	})
}

// TestDeleteExpiredSessions covers the DeleteExpired method.
func TestDeleteExpiredSessions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Define a context to use in the tests
	ctx := context.Background()

	r := repo.NewSessionRepository(mock)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
			WillReturnResult(pgxmock.NewResult("DELETE", 7))

		deleted, err := r.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), deleted)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
			WillReturnError(fmt.Errorf("db error"))

		deleted, err := r.DeleteExpired(ctx)
		assert.Error(t, err)
		assert.Zero(t, deleted)
	})
}
