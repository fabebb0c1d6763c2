package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/karthicware/ultra-bms-sub008/internal/auth/domain"
	"github.com/karthicware/ultra-bms-sub008/internal/auth/dto"
	autherror "github.com/karthicware/ultra-bms-sub008/internal/errors"
)

// uniqueViolation is the Postgres error code raised when an insert loses a
// race on a unique index.
const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the repositories use. It matches pgxmock's
// pool interface so tests can substitute a mock connection.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userWithRoleColumns = `u.id, u.email, u.password_hash, u.full_name, u.phone,
		       u.role_id, r.name AS role_name, u.failed_login_attempts, u.locked_until,
		       u.created_at, u.updated_at`

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userWithRoleColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE lower(u.email) = lower($1)
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByIDWithRole(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT ` + userWithRoleColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, userID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Phone,
		&user.RoleID, &user.RoleName, &user.FailedLoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, full_name, phone, role_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, user.ID, user.Email, user.PasswordHash, user.FullName, user.Phone, user.RoleID,
		user.CreatedAt, user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return autherror.ErrEmailAlreadyInUse
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// RecordFailedLogin bumps the failure counter and locks the account in the
// same statement once the counter reaches maxAttempts. Concurrent failures
// each increment exactly once because the arithmetic happens in the database.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, userID string, maxAttempts, lockoutMinutes int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN now() + make_interval(mins => $3)
		        ELSE locked_until
		    END,
		    updated_at = now()
		WHERE id = $1
	`, userID, maxAttempts, lockoutMinutes)
	if err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}
	return nil
}

func (r *UserRepository) ResetLoginAttempts(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

func (r *UserRepository) RecordLoginAttempt(ctx context.Context, email, ip, userAgent string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, $3, now(), $4)
	`, email, ip, userAgent, success)
	return err
}

func (r *UserRepository) UpsertTrustedDevice(ctx context.Context, userID, fingerprint, userAgent, ip string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO trusted_devices (
			id, user_id, device_fingerprint, user_agent, ip_address, last_seen, created_at
		) VALUES (
			gen_random_uuid(), $1, $2, $3, $4, now(), now()
		)
		ON CONFLICT (user_id, device_fingerprint)
		DO UPDATE SET
			last_seen = now(),
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent
	`, userID, fingerprint, userAgent, ip)
	return err
}

func (r *UserRepository) GetAllUsers(ctx context.Context) ([]dto.UserOutput, error) {
	query := `
		SELECT u.id, u.email, u.full_name, u.phone, u.role_id, r.name AS role_name, u.created_at, u.updated_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.created_at ASC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []dto.UserOutput
	for rows.Next() {
		var u dto.UserOutput
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.RoleID, &u.RoleName,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) UpdateUserRole(ctx context.Context, userID string, roleID int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET role_id = $2, updated_at = now() WHERE id = $1
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrUserNotFound
	}
	return nil
}
