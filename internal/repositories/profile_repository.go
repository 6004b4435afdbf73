package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/secretfriends/backend/internal/db"
)

// PostgresProfileRepository stores each user's secret message in the profiles table.
type PostgresProfileRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresProfileRepository constructs a profile repository backed by PostgreSQL.
func NewPostgresProfileRepository(pool db.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool, now: time.Now}
}

// GetSecretMessage returns the user's secret message, or nil when none is stored.
func (r *PostgresProfileRepository) GetSecretMessage(ctx context.Context, userID string) (*string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var message sql.NullString
	err = conn.QueryRow(ctx, `
        SELECT secret_message
        FROM profiles
        WHERE user_id = $1
    `, userID).Scan(&message)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	if !message.Valid {
		return nil, nil
	}
	return &message.String, nil
}

// SetSecretMessage creates or replaces the user's secret message.
func (r *PostgresProfileRepository) SetSecretMessage(ctx context.Context, userID, message string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO profiles (user_id, secret_message, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id)
        DO UPDATE SET secret_message = EXCLUDED.secret_message, updated_at = EXCLUDED.updated_at
    `, userID, message, r.now().UTC())
	if err != nil {
		return mapWriteError("upsert profile", err)
	}

	return nil
}

// DeleteProfile removes the user's profile row. A missing row is not an error.
func (r *PostgresProfileRepository) DeleteProfile(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
