package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/ledger"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const (
	DefaultStaleCutoff      = 35 * time.Minute
	DefaultReadyCheckCutoff = 10 * time.Minute

	defaultReclaimBatch = 200
)

// LockedWalletLister lists users whose wallets hold a locked balance.
type LockedWalletLister interface {
	ListLocked(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// EscrowSummer totals the stakes a payer still has escrowed in live matches.
type EscrowSummer interface {
	SumEscrowedByPayerTx(ctx context.Context, tx pgx.Tx, payerID uuid.UUID) (decimal.Decimal, error)
}

// ReclaimReport summarizes one sweep.
type ReclaimReport struct {
	Expired         int `json:"expired"`
	Resettled       int `json:"resettled"`
	WalletsRepaired int `json:"wallets_repaired"`
	Failed          int `json:"failed"`
}

// StaleMatchReclaimer force-terminates abandoned matches, retries lost
// settlements once and releases orphaned locked balances. Every pass is safe
// to re-run.
type StaleMatchReclaimer struct {
	Machine          *Machine
	Wallets          LockedWalletLister
	Escrow           EscrowSummer
	ReadyCheckCutoff time.Duration
	BatchSize        int
}

func NewStaleMatchReclaimer(m *Machine, wallets LockedWalletLister, escrow EscrowSummer) *StaleMatchReclaimer {
	return &StaleMatchReclaimer{
		Machine:          m,
		Wallets:          wallets,
		Escrow:           escrow,
		ReadyCheckCutoff: DefaultReadyCheckCutoff,
		BatchSize:        defaultReclaimBatch,
	}
}

// ReclaimStale retries lost settlements, expires stale matches and repairs
// orphaned locks, in that order. Per-item failures are collected and returned
// together; they do not stop the sweep.
func (r *StaleMatchReclaimer) ReclaimStale(ctx context.Context, cutoff time.Duration) (*ReclaimReport, error) {
	if cutoff <= 0 {
		cutoff = DefaultStaleCutoff
	}
	readyCutoff := r.ReadyCheckCutoff
	if readyCutoff <= 0 {
		readyCutoff = DefaultReadyCheckCutoff
	}
	readyCutoff = min(readyCutoff, cutoff)
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultReclaimBatch
	}

	m := r.Machine
	now := m.now()
	criteria := models.StaleCriteria{
		Now:           now,
		OpenBefore:    now.Add(-cutoff),
		FilledBefore:  now.Add(-readyCutoff),
		StartedBefore: now.Add(-cutoff),
	}

	report := &ReclaimReport{}
	var errs []error

	unsettled, err := m.Results.ListUnsettled(ctx, limit)
	if err != nil {
		errs = append(errs, fmt.Errorf("list unsettled results: %w", err))
	}
	for _, id := range unsettled {
		done, err := r.resettle(ctx, id)
		if err != nil {
			report.Failed++
			m.Logger.Error("settlement retry failed", "match_id", id, "error", err, "alert", true)
			errs = append(errs, fmt.Errorf("resettle match %s: %w", id, err))
			continue
		}
		if done {
			report.Resettled++
		}
	}

	ids, err := m.Matches.ListStale(ctx, criteria, limit)
	if err != nil {
		errs = append(errs, fmt.Errorf("list stale matches: %w", err))
	}
	for _, id := range ids {
		expired, err := r.expire(ctx, id, criteria)
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("expire match %s: %w", id, err))
			continue
		}
		if expired {
			report.Expired++
		}
	}

	wallets, err := r.Wallets.ListLocked(ctx, limit)
	if err != nil {
		errs = append(errs, fmt.Errorf("list locked wallets: %w", err))
	}
	for _, userID := range wallets {
		repaired, err := r.repairWallet(ctx, userID)
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("repair wallet %s: %w", userID, err))
			continue
		}
		if repaired {
			report.WalletsRepaired++
		}
	}

	if report.Expired+report.Resettled+report.WalletsRepaired+report.Failed > 0 {
		m.Logger.Info("reclaim sweep",
			"expired", report.Expired,
			"resettled", report.Resettled,
			"wallets_repaired", report.WalletsRepaired,
			"failed", report.Failed,
		)
	}
	return report, errors.Join(errs...)
}

// expire refunds and expires a match if it is still stale under the row lock.
func (r *StaleMatchReclaimer) expire(ctx context.Context, matchID uuid.UUID, c models.StaleCriteria) (bool, error) {
	m := r.Machine
	expired := false
	err := m.inMatchTx(ctx, matchID, func(tx pgx.Tx, match *models.Match) error {
		if !c.Matches(match) {
			return nil
		}
		// A final result is settled by resettle, never refunded.
		res, err := m.Results.GetByMatchIDForUpdate(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if res != nil && res.IsFinal() {
			return nil
		}
		settled, err := m.Ledger.HasSettlement(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if settled {
			return m.Ledger.Invariantf("match %s is %s but already settled", match.ID, match.Status)
		}
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if err := m.settleRefund(ctx, tx, match, ps); err != nil {
			return err
		}
		if err := m.transition(ctx, tx, match, models.MatchStatusExpired, nil, map[string]any{
			"reason":       "stale",
			"stale_status": match.Status,
		}); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

// resettle re-attempts the settlement of a final result that has no ledger
// entries. The attempt is counted in its own transaction first, so a failing
// retry is never repeated.
func (r *StaleMatchReclaimer) resettle(ctx context.Context, matchID uuid.UUID) (bool, error) {
	m := r.Machine
	claimed := false
	err := m.inMatchTx(ctx, matchID, func(tx pgx.Tx, match *models.Match) error {
		res, err := m.Results.GetByMatchIDForUpdate(ctx, tx, match.ID)
		if err != nil || res == nil || !res.IsFinal() || res.SettlementRetries > 0 {
			return err
		}
		settled, err := m.Ledger.HasSettlement(ctx, tx, match.ID)
		if err != nil || settled {
			return err
		}
		res.SettlementRetries++
		if err := m.Results.UpsertTx(ctx, tx, res); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil || !claimed {
		return false, err
	}

	done := false
	err = m.inMatchTx(ctx, matchID, func(tx pgx.Tx, match *models.Match) error {
		res, err := m.Results.GetByMatchIDForUpdate(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if res == nil {
			return nil
		}
		settled, err := m.Ledger.HasSettlement(ctx, tx, match.ID)
		if err != nil || settled {
			return err
		}
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if res.WinnerSide != nil {
			if _, err := m.settlePayout(ctx, tx, match, ps, *res.WinnerSide); err != nil {
				return err
			}
		} else if err := m.settleRefund(ctx, tx, match, ps); err != nil {
			return err
		}

		target := models.MatchStatusCompleted
		if res.Status == models.ResultStatusResolved {
			target = models.MatchStatusAdminResolved
		}
		if match.Status != target {
			if err := m.transition(ctx, tx, match, target, nil, map[string]any{"reason": "settlement_retry"}); err != nil {
				return err
			}
		}
		done = true
		return nil
	})
	if err == nil && done {
		m.Logger.Warn("settlement retried", "match_id", matchID)
	}
	return done, err
}

// repairWallet releases locked funds not backed by any unsettled seat the user paid for.
func (r *StaleMatchReclaimer) repairWallet(ctx context.Context, userID uuid.UUID) (bool, error) {
	m := r.Machine
	tx, err := m.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := m.Ledger.Wallets.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	escrowed, err := r.Escrow.SumEscrowedByPayerTx(ctx, tx, userID)
	if err != nil {
		return false, err
	}
	excess := w.LockedBalance.Sub(escrowed)
	if excess.IsNegative() {
		return false, m.Ledger.Invariantf("wallet %s locks %s but escrows %s", userID, w.LockedBalance, escrowed)
	}
	if !excess.IsPositive() {
		return false, nil
	}
	if err := m.Ledger.Release(ctx, tx, ledger.Release{
		UserID: userID,
		Kind:   models.TxKindUnlock,
		Amount: excess,
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	m.Logger.Warn("orphaned lock released", "user_id", userID, "amount", excess.StringFixed(2))
	return true, nil
}
