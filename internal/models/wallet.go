package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's spendable and escrowed funds. Only the ledger mutates it.
type Wallet struct {
	UserID        uuid.UUID       `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Holdings is balance plus locked balance.
func (w *Wallet) Holdings() decimal.Decimal {
	return w.Balance.Add(w.LockedBalance)
}
