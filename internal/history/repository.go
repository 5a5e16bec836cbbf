package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Entry is one match from a player's point of view.
type Entry struct {
	MatchID           uuid.UUID
	MatchStatus       string
	TeamSize          int
	EntryFee          decimal.Decimal
	TeamSide          string
	ParticipantStatus string
	CoveredBy         *uuid.UUID
	WinnerSide        *string
	JoinedAt          time.Time
	FinishedAt        *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByUser returns the user's matches, most recent first. An empty status
// matches every status.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit int) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.status, m.team_size, m.entry_fee, p.team_side, p.status,
			NULLIF(p.paid_by, p.user_id), mr.winner_side, p.joined_at, m.finished_at
		FROM participants p
		JOIN matches m ON m.id = p.match_id
		LEFT JOIN match_results mr ON mr.match_id = m.id
		WHERE p.user_id = $1 AND ($2 = '' OR m.status = $2)
		ORDER BY p.joined_at DESC
		LIMIT $3
	`, userID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.MatchID, &e.MatchStatus, &e.TeamSize, &e.EntryFee, &e.TeamSide, &e.ParticipantStatus,
			&e.CoveredBy, &e.WinnerSide, &e.JoinedAt, &e.FinishedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

