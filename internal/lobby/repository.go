package lobby

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OpenMatch is a joinable match as shown in the lobby.
type OpenMatch struct {
	ID          uuid.UUID
	CreatorID   uuid.UUID
	CreatorName string
	TeamSize    int
	EntryFee    decimal.Decimal
	FirstTo     int
	SeatsTaken  int
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOpen returns unexpired open matches, newest first.
func (r *Repository) ListOpen(ctx context.Context, f Filter) ([]*OpenMatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.creator_id, u.display_name, m.team_size, m.entry_fee, m.first_to,
			(SELECT count(*) FROM participants p WHERE p.match_id = m.id) AS seats_taken,
			m.expires_at, m.created_at
		FROM matches m
		JOIN users u ON u.id = m.creator_id
		WHERE m.status = 'open' AND m.expires_at > now()
			AND ($1 = 0 OR m.team_size = $1)
			AND ($2::numeric IS NULL OR m.entry_fee <= $2)
		ORDER BY m.created_at DESC
		LIMIT $3
	`, f.TeamSize, f.MaxFee, f.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*OpenMatch, error) {
		var m OpenMatch
		err := row.Scan(&m.ID, &m.CreatorID, &m.CreatorName, &m.TeamSize, &m.EntryFee, &m.FirstTo,
			&m.SeatsTaken, &m.ExpiresAt, &m.CreatedAt)
		return &m, err
	})
}
