package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const transactionColumns = `id, user_id, kind, amount, locked_delta, balance_after, match_id, provider_tx_id, status, created_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx inserts a ledger entry inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, locked_delta, balance_after, match_id, provider_tx_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, t.ID, t.UserID, t.Kind, t.Amount, t.LockedDelta, t.BalanceAfter, t.MatchID, t.ProviderTxID, t.Status).Scan(&t.CreatedAt)
}

// FindDepositTx returns the completed deposit keyed by providerTxID, or nil if none exists.
func (r *TransactionRepo) FindDepositTx(ctx context.Context, tx pgx.Tx, providerTxID string) (*models.Transaction, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE provider_tx_id = $1 AND kind = 'deposit' AND status = 'completed'
	`, providerTxID)
	if err != nil {
		return nil, err
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CountSettlementTx counts payout, refund and fee entries for a match.
func (r *TransactionRepo) CountSettlementTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM transactions
		WHERE match_id = $1 AND kind IN ('payout', 'refund', 'fee')
	`, matchID).Scan(&n)
	return n, err
}

func (r *TransactionRepo) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTransaction)
}

func (r *TransactionRepo) ListByMatchID(ctx context.Context, matchID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE match_id = $1 ORDER BY created_at
	`, matchID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTransaction)
}

func scanTransaction(row pgx.CollectableRow) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.LockedDelta, &t.BalanceAfter, &t.MatchID, &t.ProviderTxID, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
