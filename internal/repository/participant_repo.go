package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const participantColumns = `id, match_id, user_id, team_side, paid_by, ready, result_choice, status, joined_at`

type ParticipantRepo struct {
	pool *pgxpool.Pool
}

func NewParticipantRepo(pool *pgxpool.Pool) *ParticipantRepo {
	return &ParticipantRepo{pool: pool}
}

func (r *ParticipantRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Participant) error {
	return tx.QueryRow(ctx, `
		INSERT INTO participants (id, match_id, user_id, team_side, paid_by, ready, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING joined_at
	`, p.ID, p.MatchID, p.UserID, p.TeamSide, p.PaidBy, p.Ready, p.Status).Scan(&p.JoinedAt)
}

// ListByMatchTx returns the match's participants in join order.
func (r *ParticipantRepo) ListByMatchTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) ([]*models.Participant, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+participantColumns+` FROM participants WHERE match_id = $1 ORDER BY joined_at, id
	`, matchID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanParticipant)
}

func (r *ParticipantRepo) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+participantColumns+` FROM participants WHERE match_id = $1 ORDER BY joined_at, id
	`, matchID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanParticipant)
}

// UpdateTx writes the mutable fields: ready, result_choice and status.
func (r *ParticipantRepo) UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Participant) error {
	_, err := tx.Exec(ctx, `
		UPDATE participants SET ready = $2, result_choice = $3, status = $4 WHERE id = $1
	`, p.ID, p.Ready, p.ResultChoice, p.Status)
	return err
}

// SumEscrowedByPayerTx totals the entry fees payerID has locked for seats not
// yet settled. A seat leaves 'joined' in the same transaction that settles or
// refunds it, whatever the match status says.
func (r *ParticipantRepo) SumEscrowedByPayerTx(ctx context.Context, tx pgx.Tx, payerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(m.entry_fee), 0)
		FROM participants p JOIN matches m ON m.id = p.match_id
		WHERE p.paid_by = $1 AND p.status = $2
	`, payerID, models.ParticipantJoined).Scan(&total)
	return total, err
}

func scanParticipant(row pgx.CollectableRow) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.MatchID, &p.UserID, &p.TeamSide, &p.PaidBy, &p.Ready, &p.ResultChoice, &p.Status, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
