package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// CreateTx inserts an empty wallet for userID.
func (r *WalletRepo) CreateTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, locked_balance) VALUES ($1, 0, 0)
	`, userID)
	return err
}

func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, balance, locked_balance, updated_at FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.Balance, &w.LockedBalance, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByUserIDForUpdate locks the wallet row for update. Call within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := tx.QueryRow(ctx, `
		SELECT user_id, balance, locked_balance, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&w.UserID, &w.Balance, &w.LockedBalance, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateBalances writes balance and locked_balance. Call after GetByUserIDForUpdate in same tx.
func (r *WalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *models.Wallet) error {
	return tx.QueryRow(ctx, `
		UPDATE wallets SET balance = $2, locked_balance = $3, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at
	`, w.UserID, w.Balance, w.LockedBalance).Scan(&w.UpdatedAt)
}

// ListLocked returns users other than the platform holding a positive locked balance.
func (r *WalletRepo) ListLocked(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM wallets
		WHERE locked_balance > 0 AND user_id <> $1
		ORDER BY user_id LIMIT $2
	`, models.PlatformUserID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
