package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const eventColumns = `id, match_id, event_type, from_status, to_status, actor_id, payload, created_at, published_at`

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// AppendTx writes an outbox record in the transaction that made the change.
func (r *EventRepo) AppendTx(ctx context.Context, tx pgx.Tx, e *models.MatchEvent) error {
	return tx.QueryRow(ctx, `
		INSERT INTO match_events (match_id, event_type, from_status, to_status, actor_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.MatchID, e.Type, e.FromStatus, e.ToStatus, e.ActorID, e.Payload).Scan(&e.ID, &e.CreatedAt)
}

// ListByMatch returns events for a match with id > afterID, oldest first.
func (r *EventRepo) ListByMatch(ctx context.Context, matchID uuid.UUID, afterID int64, limit int) ([]*models.MatchEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM match_events
		WHERE match_id = $1 AND id > $2
		ORDER BY id LIMIT $3
	`, matchID, afterID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEvent)
}

func (r *EventRepo) ListUnpublished(ctx context.Context, limit int) ([]*models.MatchEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM match_events
		WHERE published_at IS NULL
		ORDER BY id LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEvent)
}

func (r *EventRepo) MarkPublished(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE match_events SET published_at = now() WHERE id = ANY($1) AND published_at IS NULL
	`, ids)
	return err
}

func scanEvent(row pgx.CollectableRow) (*models.MatchEvent, error) {
	var e models.MatchEvent
	err := row.Scan(&e.ID, &e.MatchID, &e.Type, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Payload, &e.CreatedAt, &e.PublishedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
