package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const resultColumns = `match_id, side_a_choice, side_b_choice, winner_side, winner_user_id, winner_confirmed, loser_confirmed, status,
	dispute_reason, admin_action, admin_notes, resolved_by, resolved_at, settlement_retries, created_at, updated_at`

type ResultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// GetByMatchIDForUpdate returns the locked result row, or nil if no result was declared yet.
func (r *ResultRepo) GetByMatchIDForUpdate(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) (*models.MatchResult, error) {
	rows, err := tx.Query(ctx, `SELECT `+resultColumns+` FROM match_results WHERE match_id = $1 FOR UPDATE`, matchID)
	if err != nil {
		return nil, err
	}
	res, err := pgx.CollectExactlyOneRow(rows, scanResult)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// GetByMatchID returns the result, or nil if none exists.
func (r *ResultRepo) GetByMatchID(ctx context.Context, matchID uuid.UUID) (*models.MatchResult, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns+` FROM match_results WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, err
	}
	res, err := pgx.CollectExactlyOneRow(rows, scanResult)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *ResultRepo) UpsertTx(ctx context.Context, tx pgx.Tx, res *models.MatchResult) error {
	return tx.QueryRow(ctx, `
		INSERT INTO match_results (match_id, side_a_choice, side_b_choice, winner_side, winner_user_id, winner_confirmed, loser_confirmed,
			status, dispute_reason, admin_action, admin_notes, resolved_by, resolved_at, settlement_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (match_id) DO UPDATE SET
			side_a_choice = EXCLUDED.side_a_choice,
			side_b_choice = EXCLUDED.side_b_choice,
			winner_side = EXCLUDED.winner_side,
			winner_user_id = EXCLUDED.winner_user_id,
			winner_confirmed = EXCLUDED.winner_confirmed,
			loser_confirmed = EXCLUDED.loser_confirmed,
			status = EXCLUDED.status,
			dispute_reason = EXCLUDED.dispute_reason,
			admin_action = EXCLUDED.admin_action,
			admin_notes = EXCLUDED.admin_notes,
			resolved_by = EXCLUDED.resolved_by,
			resolved_at = EXCLUDED.resolved_at,
			settlement_retries = EXCLUDED.settlement_retries,
			updated_at = now()
		RETURNING created_at, updated_at
	`, res.MatchID, res.SideAChoice, res.SideBChoice, res.WinnerSide, res.WinnerUserID, res.WinnerConfirmed, res.LoserConfirmed,
		res.Status, res.DisputeReason, res.AdminAction, res.AdminNotes, res.ResolvedBy, res.ResolvedAt, res.SettlementRetries,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// ListUnsettled returns matches whose result is final but which have no
// settlement entries and have not been retried yet.
func (r *ResultRepo) ListUnsettled(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mr.match_id FROM match_results mr
		WHERE mr.status IN ('confirmed', 'resolved')
		  AND mr.settlement_retries = 0
		  AND NOT EXISTS (
			SELECT 1 FROM transactions t
			WHERE t.match_id = mr.match_id AND t.kind IN ('payout', 'refund', 'fee')
		  )
		ORDER BY mr.updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func scanResult(row pgx.CollectableRow) (*models.MatchResult, error) {
	var res models.MatchResult
	err := row.Scan(&res.MatchID, &res.SideAChoice, &res.SideBChoice, &res.WinnerSide, &res.WinnerUserID, &res.WinnerConfirmed,
		&res.LoserConfirmed, &res.Status, &res.DisputeReason, &res.AdminAction, &res.AdminNotes, &res.ResolvedBy, &res.ResolvedAt,
		&res.SettlementRetries, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
