package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/settle-idm/pkg/twofa"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, phone, password_hash, role, two_factor_enabled, two_factor_method, created_at`

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL credential repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var phone *string
	var role, method string
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&phone,
		&u.PasswordHash,
		&role,
		&u.TwoFactorEnabled,
		&method,
		&u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if phone != nil {
		u.Phone = *phone
	}
	u.Role = Role(role)
	u.TwoFactorMethod = twofa.Method(method)
	return u, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	query := `
		INSERT INTO users (
			name, email, phone, password_hash, role, two_factor_enabled, two_factor_method
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query,
		params.Name,
		params.Email,
		nullIfEmpty(params.Phone),
		params.PasswordHash,
		string(params.Role),
		params.TwoFactorEnabled,
		string(params.TwoFactorMethod),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by id
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by normalized email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// UpdatePasswordHash replaces the stored hash
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateTwoFactorPreference stores the enabled flag and method
func (r *PostgresRepository) UpdateTwoFactorPreference(ctx context.Context, id uuid.UUID, pref twofa.Preference) error {
	query := `UPDATE users SET two_factor_enabled = $2, two_factor_method = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, pref.Enabled, string(pref.Method))
	if err != nil {
		return fmt.Errorf("failed to update 2fa preference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user; OTP codes are removed by the foreign key cascade
func (r *PostgresRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
