package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
)

// userColumns is the default projection. password_hash is deliberately
// absent; only FindByEmailWithPassword selects it.
const userColumns = `id, email, username, email_verified, is_admin, is_moderator,
	two_factor_enabled, status, login_failed_attempts, login_failed_last_at,
	account_locked_until, last_login_at, created_at, updated_at, deleted_at`

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

var (
	_ outbound.UserRepository   = (*userRepository)(nil)
	_ outbound.CredentialReader = (*userRepository)(nil)
)

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, email_verified, is_admin,
			is_moderator, two_factor_enabled, status, login_failed_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.EmailVerified,
		user.IsAdmin,
		user.IsModerator,
		user.TwoFactorEnabled,
		user.Status,
		user.LoginFailedAttempts,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if uniqueErr := mapUniqueViolation(err); uniqueErr != nil {
			return uniqueErr
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL`, userColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND deleted_at IS NULL`, userColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1 AND deleted_at IS NULL`, userColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

// FindByEmailWithPassword is the credential lookup path. It is the only query
// in the repository selecting password_hash, and an unknown email is an empty
// result rather than an error.
func (r *userRepository) FindByEmailWithPassword(ctx context.Context, email string) (*entity.Credential, error) {
	query := fmt.Sprintf(`SELECT %s, password_hash FROM users WHERE email = $1 AND deleted_at IS NULL`, userColumns)

	var user entity.User
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, query, email).Scan(append(scanTargets(&user), &hash)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user with password: %w", err)
	}

	return &entity.Credential{User: user.Public(), PasswordHash: hash.String}, nil
}

func (r *userRepository) FindAll(ctx context.Context, offset, limit int) ([]*entity.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, userColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		if err := rows.Scan(scanTargets(&user)...); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	query := `
		UPDATE users
		SET email = $2, username = $3, password_hash = COALESCE(NULLIF($4, ''), password_hash),
			email_verified = $5, is_admin = $6, is_moderator = $7, two_factor_enabled = $8,
			status = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.EmailVerified,
		user.IsAdmin,
		user.IsModerator,
		user.TwoFactorEnabled,
		user.Status,
		user.UpdatedAt,
	)
	if err != nil {
		if uniqueErr := mapUniqueViolation(err); uniqueErr != nil {
			return uniqueErr
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result)
}

func (r *userRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE users
		SET status = $2, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, entity.StatusInactive, at)
	if err != nil {
		return fmt.Errorf("failed to soft delete user: %w", err)
	}
	return requireRow(result)
}

func (r *userRepository) HardDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to hard delete user: %w", err)
	}
	return requireRow(result)
}

func (r *userRepository) RecordLoginFailure(ctx context.Context, id string, attempts int, at time.Time) error {
	query := `
		UPDATE users
		SET login_failed_attempts = $2, login_failed_last_at = $3, updated_at = $3
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, attempts, at); err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}
	return nil
}

func (r *userRepository) LockAccount(ctx context.Context, id string, attempts int, at, until time.Time) error {
	query := `
		UPDATE users
		SET login_failed_attempts = $2, login_failed_last_at = $3,
			account_locked_until = $4, status = $5, updated_at = $3
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, attempts, at, until, entity.StatusSuspended); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	return nil
}

// ReleaseExpiredLock performs the lazy unlock as a conditional update so that
// concurrent checks past expiry race for a single row transition. Only the
// caller that actually flipped the row gets true.
func (r *userRepository) ReleaseExpiredLock(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET account_locked_until = NULL, login_failed_attempts = 0,
			login_failed_last_at = NULL, status = $3, updated_at = $2
		WHERE id = $1 AND account_locked_until IS NOT NULL AND account_locked_until <= $2
	`
	result, err := r.db.ExecContext(ctx, query, id, now, entity.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to release expired lock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *userRepository) ResetLoginFailures(ctx context.Context, id string, loginAt time.Time) error {
	query := `
		UPDATE users
		SET login_failed_attempts = 0, login_failed_last_at = NULL,
			last_login_at = $2, updated_at = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, loginAt); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}

func (r *userRepository) scanOne(row *sql.Row) (*entity.User, error) {
	var user entity.User
	if err := row.Scan(scanTargets(&user)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func scanTargets(user *entity.User) []interface{} {
	return []interface{}{
		&user.ID,
		&user.Email,
		&user.Username,
		&user.EmailVerified,
		&user.IsAdmin,
		&user.IsModerator,
		&user.TwoFactorEnabled,
		&user.Status,
		&user.LoginFailedAttempts,
		&user.LoginFailedLastAt,
		&user.AccountLockedUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	}
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}

// mapUniqueViolation translates a postgres unique violation into the domain
// conflict error for the offending column.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pqErr.Constraint, "username") {
		return outbound.ErrUsernameTaken
	}
	return outbound.ErrEmailTaken
}
