package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/db"
)

const (
	upsertSessionSQL = `INSERT INTO sessions (refresh_token, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (refresh_token) DO UPDATE
SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`

	selectSessionSQL      = `SELECT user_id, expires_at FROM sessions WHERE refresh_token = $1`
	deleteSessionSQL      = `DELETE FROM sessions WHERE refresh_token = $1`
	deleteUserSessionsSQL = `DELETE FROM sessions WHERE user_id = $1`
)

// PostgresSessionStore keeps refresh sessions in the sessions table. Rows are
// removed with their user through the foreign key cascade.
type PostgresSessionStore struct {
	pool db.Pool
}

func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Save upserts session. An unknown user yields ErrNotFound.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	_, err := s.exec(ctx, upsertSessionSQL, session.RefreshToken, session.UserID, session.ExpiresAt.UTC())
	if err != nil {
		return mapWriteError("upsert session", err)
	}
	return nil
}

func (s *PostgresSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Session{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	session := auth.Session{RefreshToken: refreshToken}
	err = conn.QueryRow(ctx, selectSessionSQL, refreshToken).Scan(&session.UserID, &session.ExpiresAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return auth.Session{}, auth.ErrSessionNotFound
	case err != nil:
		return auth.Session{}, fmt.Errorf("select session: %w", err)
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	return session, nil
}

// Delete removes one session and reports auth.ErrSessionNotFound when nothing matched.
func (s *PostgresSessionStore) Delete(ctx context.Context, refreshToken string) error {
	tag, err := s.exec(ctx, deleteSessionSQL, refreshToken)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// DeleteForUser signs userID out everywhere.
func (s *PostgresSessionStore) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.exec(ctx, deleteUserSessionsSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresSessionStore) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return conn.Exec(ctx, sql, args...)
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
