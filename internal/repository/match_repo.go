package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const matchColumns = `id, creator_id, team_size, entry_fee, first_to, status, expires_at, filled_at, started_at, finished_at, created_at, updated_at`

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

func (r *MatchRepo) CreateTx(ctx context.Context, tx pgx.Tx, m *models.Match) error {
	return tx.QueryRow(ctx, `
		INSERT INTO matches (id, creator_id, team_size, entry_fee, first_to, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, m.ID, m.CreatorID, m.TeamSize, m.EntryFee, m.FirstTo, m.Status, m.ExpiresAt).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *MatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, scanMatch)
}

// GetByIDForUpdate locks the match row. Every mutation of a match starts here.
func (r *MatchRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Match, error) {
	rows, err := tx.Query(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, scanMatch)
}

// UpdateStatusTx writes status and lifecycle timestamps.
func (r *MatchRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, m *models.Match) error {
	return tx.QueryRow(ctx, `
		UPDATE matches SET status = $2, filled_at = $3, started_at = $4, finished_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, m.ID, m.Status, m.FilledAt, m.StartedAt, m.FinishedAt).Scan(&m.UpdatedAt)
}

// ListStale returns ids of matches the reclaimer may expire, oldest first.
func (r *MatchRepo) ListStale(ctx context.Context, c models.StaleCriteria, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM matches
		WHERE (status = 'open' AND (created_at < $1 OR expires_at < $4))
		   OR (status IN ('full', 'ready_check') AND (filled_at < $2 OR expires_at < $4))
		   OR (status IN ('in_progress', 'result_pending') AND started_at < $3)
		ORDER BY created_at
		LIMIT $5
	`, c.OpenBefore, c.FilledBefore, c.StartedBefore, c.Now, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func scanMatch(row pgx.CollectableRow) (*models.Match, error) {
	var m models.Match
	err := row.Scan(&m.ID, &m.CreatorID, &m.TeamSize, &m.EntryFee, &m.FirstTo, &m.Status, &m.ExpiresAt, &m.FilledAt, &m.StartedAt, &m.FinishedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
