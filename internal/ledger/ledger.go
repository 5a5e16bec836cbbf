package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

var (
	// ErrInsufficientFunds is returned when a wallet's balance is below the amount to lock.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvariantViolation marks a bug in money handling. The caller must abort its transaction.
	ErrInvariantViolation = errors.New("ledger invariant violation")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrDuplicateDeposit is returned when a concurrent credit recorded the same provider transaction first.
	ErrDuplicateDeposit = errors.New("provider transaction already recorded")
)

// WalletStore is the wallet persistence the ledger needs. All calls run inside the caller's transaction.
type WalletStore interface {
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.Wallet, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, w *models.Wallet) error
}

// TransactionStore is the append-only transaction log.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	// FindDepositTx returns the completed deposit for providerTxID, or nil.
	FindDepositTx(ctx context.Context, tx pgx.Tx, providerTxID string) (*models.Transaction, error)
	CountSettlementTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) (int, error)
}

// Ledger is the single writer of wallet balances.
type Ledger struct {
	Wallets      WalletStore
	Transactions TransactionStore
	FeeRate      decimal.Decimal
	Logger       *slog.Logger
}

// New returns a Ledger charging feeRate on every payout. A zero rate charges no fee.
func New(wallets WalletStore, txs TransactionStore, feeRate decimal.Decimal, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{Wallets: wallets, Transactions: txs, FeeRate: feeRate, Logger: logger}
}

// Lock moves amount from balance to locked balance for matchID.
func (l *Ledger) Lock(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, matchID uuid.UUID) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	w, err := l.Wallets.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("lock wallet %s: %w", userID, err)
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	w.LockedBalance = w.LockedBalance.Add(amount)
	if err := l.Wallets.UpdateBalances(ctx, tx, w); err != nil {
		return err
	}
	return l.append(ctx, tx, &models.Transaction{
		UserID:       userID,
		Kind:         models.TxKindLock,
		Amount:       amount.Neg(),
		LockedDelta:  amount,
		BalanceAfter: w.Balance,
		MatchID:      &matchID,
	})
}

// Release takes funds out of a locked balance.
type Release struct {
	UserID uuid.UUID
	// MatchID is uuid.Nil only for unlocks that repair an orphaned balance.
	MatchID uuid.UUID
	Kind    string
	Amount  decimal.Decimal
	// Paid is credited to balance for payouts. Unlocks and refunds credit Amount; fees credit nothing.
	Paid decimal.Decimal
}

// Release decrements the locked balance by r.Amount and credits the balance
// according to r.Kind. Releasing more than is locked is an invariant violation.
func (l *Ledger) Release(ctx context.Context, tx pgx.Tx, r Release) error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	var credit decimal.Decimal
	switch r.Kind {
	case models.TxKindUnlock, models.TxKindRefund:
		credit = r.Amount
	case models.TxKindPayout:
		credit = r.Paid
	case models.TxKindFee:
		credit = decimal.Zero
	default:
		return fmt.Errorf("release: unsupported kind %q", r.Kind)
	}
	if r.Kind != models.TxKindUnlock && r.MatchID == uuid.Nil {
		return l.Invariantf("%s release for user %s has no match", r.Kind, r.UserID)
	}

	w, err := l.Wallets.GetByUserIDForUpdate(ctx, tx, r.UserID)
	if err != nil {
		return fmt.Errorf("lock wallet %s: %w", r.UserID, err)
	}
	if w.LockedBalance.LessThan(r.Amount) {
		return l.Invariantf("release %s from user %s exceeds locked balance %s", r.Amount, r.UserID, w.LockedBalance)
	}
	w.LockedBalance = w.LockedBalance.Sub(r.Amount)
	w.Balance = w.Balance.Add(credit)
	if err := l.Wallets.UpdateBalances(ctx, tx, w); err != nil {
		return err
	}

	entry := &models.Transaction{
		UserID:       r.UserID,
		Kind:         r.Kind,
		Amount:       credit,
		LockedDelta:  r.Amount.Neg(),
		BalanceAfter: w.Balance,
	}
	if r.MatchID != uuid.Nil {
		id := r.MatchID
		entry.MatchID = &id
	}
	return l.append(ctx, tx, entry)
}

// CollectFee credits the platform wallet with a match's fee.
func (l *Ledger) CollectFee(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	w, err := l.Wallets.GetByUserIDForUpdate(ctx, tx, models.PlatformUserID)
	if err != nil {
		return fmt.Errorf("lock platform wallet: %w", err)
	}
	w.Balance = w.Balance.Add(amount)
	if err := l.Wallets.UpdateBalances(ctx, tx, w); err != nil {
		return err
	}
	return l.append(ctx, tx, &models.Transaction{
		UserID:       models.PlatformUserID,
		Kind:         models.TxKindFee,
		Amount:       amount,
		LockedDelta:  decimal.Zero,
		BalanceAfter: w.Balance,
		MatchID:      &matchID,
	})
}

// CreditResult reports the outcome of a deposit. Replayed is true when the
// provider transaction was already credited and nothing changed.
type CreditResult struct {
	TransactionID uuid.UUID
	Balance       decimal.Decimal
	Replayed      bool
}

// Credit deposits amount exactly once per providerTxID.
func (l *Ledger) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, providerTxID string) (*CreditResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if providerTxID == "" {
		return nil, errors.New("provider transaction id is required")
	}
	w, err := l.Wallets.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %s: %w", userID, err)
	}
	existing, err := l.Transactions.FindDepositTx(ctx, tx, providerTxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID != userID {
			l.Logger.Warn("deposit replay for a different user", "provider_tx_id", providerTxID, "user_id", userID, "credited_user_id", existing.UserID)
		}
		return &CreditResult{TransactionID: existing.ID, Balance: w.Balance, Replayed: true}, nil
	}

	w.Balance = w.Balance.Add(amount)
	if err := l.Wallets.UpdateBalances(ctx, tx, w); err != nil {
		return nil, err
	}
	ref := providerTxID
	entry := &models.Transaction{
		UserID:       userID,
		Kind:         models.TxKindDeposit,
		Amount:       amount,
		LockedDelta:  decimal.Zero,
		BalanceAfter: w.Balance,
		ProviderTxID: &ref,
	}
	if err := l.append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &CreditResult{TransactionID: entry.ID, Balance: w.Balance}, nil
}

// HasSettlement reports whether payout, refund or fee entries exist for matchID.
func (l *Ledger) HasSettlement(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) (bool, error) {
	n, err := l.Transactions.CountSettlementTx(ctx, tx, matchID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplySettlement executes plan. Settling a match that already has settlement
// entries is an invariant violation.
func (l *Ledger) ApplySettlement(ctx context.Context, tx pgx.Tx, plan *Plan) error {
	settled, err := l.HasSettlement(ctx, tx, plan.MatchID)
	if err != nil {
		return err
	}
	if settled {
		return l.Invariantf("match %s is already settled", plan.MatchID)
	}

	// Lock all affected wallets in deterministic order (by UUID)
	ids := make([]uuid.UUID, 0, len(plan.Entries)+1)
	for _, e := range plan.Entries {
		ids = append(ids, e.PayerID)
	}
	if plan.Fee.IsPositive() {
		ids = append(ids, models.PlatformUserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := l.Wallets.GetByUserIDForUpdate(ctx, tx, id); err != nil {
			return fmt.Errorf("lock wallet %s: %w", id, err)
		}
	}

	for _, e := range plan.Entries {
		if err := l.Release(ctx, tx, Release{
			UserID:  e.PayerID,
			MatchID: plan.MatchID,
			Kind:    e.Kind,
			Amount:  e.Released,
			Paid:    e.Paid,
		}); err != nil {
			return err
		}
	}
	if plan.Fee.IsPositive() {
		if err := l.CollectFee(ctx, tx, plan.MatchID, plan.Fee); err != nil {
			return err
		}
	}

	l.Logger.Info("match settled",
		"match_id", plan.MatchID,
		"kind", plan.Kind,
		"winner_side", plan.WinnerSide,
		"pool", plan.Pool.StringFixed(2),
		"fee", plan.Fee.StringFixed(2),
	)
	return nil
}

func (l *Ledger) append(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	t.ID = uuid.New()
	if t.Status == "" {
		t.Status = models.TxStatusCompleted
	}
	if err := l.Transactions.CreateTx(ctx, tx, t); err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		if t.Kind == models.TxKindDeposit {
			return fmt.Errorf("%w: %s", ErrDuplicateDeposit, *t.ProviderTxID)
		}
		return l.Invariantf("duplicate %s entry for user %s: %v", t.Kind, t.UserID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (l *Ledger) Invariantf(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
	l.Logger.Error("ledger invariant violation", "error", err, "alert", true)
	return err
}
