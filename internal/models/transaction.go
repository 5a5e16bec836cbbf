package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction kinds.
const (
	TxKindDeposit = "deposit"
	TxKindLock    = "lock"
	TxKindUnlock  = "unlock"
	TxKindPayout  = "payout"
	TxKindRefund  = "refund"
	TxKindFee     = "fee"
)

// Transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// Transaction is an immutable ledger entry. Amount is the signed change to the
// wallet balance and LockedDelta the signed change to the locked balance.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	LockedDelta  decimal.Decimal `json:"locked_delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	MatchID      *uuid.UUID      `json:"match_id,omitempty"`
	ProviderTxID *string         `json:"provider_tx_id,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Holdings returns the change this entry made to balance + locked balance.
func (t *Transaction) Holdings() decimal.Decimal {
	return t.Amount.Add(t.LockedDelta)
}

// IsSettlement reports whether the entry releases a match escrow.
func (t *Transaction) IsSettlement() bool {
	switch t.Kind {
	case TxKindPayout, TxKindRefund, TxKindFee:
		return t.MatchID != nil
	}
	return false
}
