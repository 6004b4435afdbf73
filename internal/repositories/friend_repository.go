package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/secretfriends/backend/internal/db"
	"github.com/secretfriends/backend/internal/models"
)

// PostgresFriendRepository stores friend edges in PostgreSQL or CockroachDB.
type PostgresFriendRepository struct {
	pool db.Pool
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	return &PostgresFriendRepository{pool: pool}
}

const friendEdgeColumns = `id, requester_id, recipient_id, status, email, created_at, responded_at`

// Insert persists a new edge. An existing edge for the same unordered pair, in
// either direction, yields ErrConflict; the unique (pair_low, pair_high)
// constraint settles concurrent inserts.
func (r *PostgresFriendRepository) Insert(ctx context.Context, edge models.FriendEdge) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	low, high := models.PairKey(edge.Requester, edge.Recipient)

	return crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var existing string
		err := tx.QueryRow(ctx, `
            SELECT id FROM friend_edges
            WHERE pair_low = $1 AND pair_high = $2
        `, low, high).Scan(&existing)
		switch {
		case err == nil:
			return ErrConflict
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("check existing friend edge: %w", err)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO friend_edges (id, requester_id, recipient_id, pair_low, pair_high, status, email, created_at, responded_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        `, edge.ID, edge.Requester, edge.Recipient, low, high, edge.Status, edge.Email, edge.CreatedAt, nullTime(edge.RespondedAt))
		if err != nil {
			return mapWriteError("insert friend edge", err)
		}
		return nil
	})
}

// Accept flips a pending edge addressed to recipient to accepted in a single
// conditional update. A missing edge, a different recipient or an edge that is
// no longer pending all yield ErrNotFound.
func (r *PostgresFriendRepository) Accept(ctx context.Context, edgeID, recipient string, respondedAt time.Time) (models.FriendEdge, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendEdge{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE friend_edges
        SET status = $3, responded_at = $4
        WHERE id = $1 AND recipient_id = $2 AND status = $5
        RETURNING `+friendEdgeColumns,
		edgeID, recipient, models.EdgeStatusAccepted, respondedAt.UTC(), models.EdgeStatusPending)

	edge, err := scanFriendEdge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendEdge{}, ErrNotFound
		}
		return models.FriendEdge{}, fmt.Errorf("accept friend edge: %w", err)
	}

	return edge, nil
}

// DeletePending removes the pending request requester sent to recipient.
func (r *PostgresFriendRepository) DeletePending(ctx context.Context, requester, recipient string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friend_edges
        WHERE requester_id = $1 AND recipient_id = $2 AND status = $3
    `, requester, recipient, models.EdgeStatusPending)
	if err != nil {
		return fmt.Errorf("delete pending friend edge: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteForParticipant removes an edge of any status when userID is one of its parties.
func (r *PostgresFriendRepository) DeleteForParticipant(ctx context.Context, edgeID, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friend_edges
        WHERE id = $1 AND (requester_id = $2 OR recipient_id = $2)
    `, edgeID, userID)
	if err != nil {
		return fmt.Errorf("delete friend edge: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListForUser returns edges where the user is the requester or recipient, newest first.
func (r *PostgresFriendRepository) ListForUser(ctx context.Context, userID string) ([]models.FriendEdge, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+friendEdgeColumns+`
        FROM friend_edges
        WHERE requester_id = $1 OR recipient_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query friend edges: %w", err)
	}
	defer rows.Close()

	var edges []models.FriendEdge
	for rows.Next() {
		edge, err := scanFriendEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend edge: %w", err)
		}
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend edges: %w", err)
	}

	return edges, nil
}

func scanFriendEdge(row pgx.Row) (models.FriendEdge, error) {
	var (
		edge        models.FriendEdge
		respondedAt sql.NullTime
	)

	if err := row.Scan(&edge.ID, &edge.Requester, &edge.Recipient, &edge.Status, &edge.Email, &edge.CreatedAt, &respondedAt); err != nil {
		return models.FriendEdge{}, err
	}

	edge.CreatedAt = edge.CreatedAt.UTC()
	if respondedAt.Valid {
		t := respondedAt.Time.UTC()
		edge.RespondedAt = &t
	}

	return edge, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Valid: true, Time: t.UTC()}
}
