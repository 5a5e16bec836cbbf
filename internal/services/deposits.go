package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/ledger"
)

// DepositResult reports a credited deposit. Replayed is set when the provider
// transaction had already been credited.
type DepositResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Balance       decimal.Decimal `json:"balance"`
	Replayed      bool            `json:"replayed"`
}

// WalletService credits external deposits through the ledger.
type WalletService struct {
	Pool   TxBeginner
	Ledger *ledger.Ledger
	Logger *slog.Logger
}

func NewWalletService(pool TxBeginner, l *ledger.Ledger, logger *slog.Logger) *WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletService{Pool: pool, Ledger: l, Logger: logger}
}

// CreditDeposit credits amount to userID once per providerTxID.
func (s *WalletService) CreditDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, providerTxID string) (*DepositResult, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("%w: amount must be positive with at most two decimals", ErrInvalidInput)
	}
	if providerTxID == "" {
		return nil, fmt.Errorf("%w: provider_tx_id is required", ErrInvalidInput)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := s.Ledger.Credit(ctx, tx, userID, amount, providerTxID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no wallet for user %s", ErrInvalidInput, userID)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if res.Replayed {
		s.Logger.Info("deposit replay ignored", "user_id", userID, "provider_tx_id", providerTxID)
	} else {
		s.Logger.Info("deposit credited", "user_id", userID, "amount", amount.StringFixed(2), "provider_tx_id", providerTxID)
	}
	return &DepositResult{TransactionID: res.TransactionID, Balance: res.Balance, Replayed: res.Replayed}, nil
}
