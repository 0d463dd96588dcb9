package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository on the otp_codes table
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL OTP repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Replace serializes issuers of the same user on a transaction-scoped advisory
// lock, retires the outstanding code and inserts the new one.
func (r *PostgresRepository) Replace(ctx context.Context, code Code) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, code.UserID.String()); err != nil {
			return fmt.Errorf("failed to lock user codes: %w", err)
		}

		retire := `UPDATE otp_codes SET used = true, used_at = $2 WHERE user_id = $1 AND NOT used`
		if _, err := tx.Exec(ctx, retire, code.UserID, code.CreatedAt); err != nil {
			return fmt.Errorf("failed to retire codes: %w", err)
		}

		insert := `
			INSERT INTO otp_codes (id, user_id, code_hash, method, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.Exec(ctx, insert,
			code.ID,
			code.UserID,
			code.CodeHash,
			string(code.Method),
			code.CreatedAt,
			code.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert code: %w", err)
		}
		return nil
	})
}

// Consume is a single compare-and-set UPDATE; the row count decides the outcome.
func (r *PostgresRepository) Consume(ctx context.Context, userID uuid.UUID, codeHash string, now time.Time) (bool, error) {
	query := `
		UPDATE otp_codes
		SET used = true, used_at = $3
		WHERE user_id = $1
		  AND code_hash = $2
		  AND NOT used
		  AND expires_at > $3
	`
	tag, err := r.pool.Exec(ctx, query, userID, codeHash, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) InvalidateAll(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE otp_codes SET used = true, used_at = $2 WHERE user_id = $1 AND NOT used`,
		userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otp_codes WHERE used OR expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CountUnused(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM otp_codes WHERE user_id = $1 AND NOT used`, userID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
