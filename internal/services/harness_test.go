package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/ledger"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/memstore"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// ---------------------------------------------------------------------------
// Harness: every service wired to one in-memory store and a fixed clock.
// ---------------------------------------------------------------------------

type harness struct {
	db        *memstore.DB
	now       time.Time
	machine   *Machine
	ready     *ReadyCheckCoordinator
	consensus *ResultConsensusResolver
	disputes  *DisputeResolver
	reclaimer *StaleMatchReclaimer
	deposits  *WalletService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:  memstore.New(),
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.db.Clock = func() time.Time { return h.now }

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(h.db.Wallets, h.db.Transactions, ledger.DefaultFeeRate, logger)
	h.machine = NewMachine(h.db, h.db.Matches, h.db.Participants, h.db.Results, h.db.Events, l, logger)
	h.machine.Now = h.db.Clock
	h.ready = NewReadyCheckCoordinator(h.machine)
	h.consensus = NewResultConsensusResolver(h.machine)
	h.disputes = NewDisputeResolver(h.machine, h.db.Users)
	h.reclaimer = NewStaleMatchReclaimer(h.machine, h.db.Wallets, h.db.Participants)
	h.deposits = NewWalletService(h.db, l, logger)
	return h
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

// player registers a user and funds the wallet through a deposit.
func (h *harness) player(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	h.db.AddUser(models.User{ID: id, Email: id.String() + "@example.com"}, decimal.Zero)
	if balance != "0" {
		if _, err := h.deposits.CreditDeposit(context.Background(), id, dec(balance), "seed-"+id.String()); err != nil {
			t.Fatalf("seed deposit: %v", err)
		}
	}
	return id
}

func (h *harness) admin() uuid.UUID {
	id := uuid.New()
	h.db.AddUser(models.User{ID: id, Email: "admin-" + id.String(), Role: models.RoleAdmin}, decimal.Zero)
	return id
}

func (h *harness) createMatch(t *testing.T, creator uuid.UUID, fee string, teamSize int) *models.Match {
	t.Helper()
	m, err := h.machine.CreateMatch(context.Background(), CreateMatchParams{
		CreatorID: creator,
		TeamSize:  teamSize,
		EntryFee:  dec(fee),
		FirstTo:   3,
	})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	return m
}

func (h *harness) join(t *testing.T, matchID, userID uuid.UUID, side string) *JoinResult {
	t.Helper()
	res, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: matchID, UserID: userID, Side: side})
	if err != nil {
		t.Fatalf("JoinMatch: %v", err)
	}
	return res
}

// duel creates a full 1v1 match between two players funded with 50 each.
func (h *harness) duel(t *testing.T, fee string) (match *models.Match, a, b uuid.UUID) {
	t.Helper()
	a = h.player(t, "50")
	b = h.player(t, "50")
	match = h.createMatch(t, a, fee, 1)
	h.join(t, match.ID, b, "")
	return match, a, b
}

// startedDuel is a duel where both players have readied up.
func (h *harness) startedDuel(t *testing.T, fee string) (match *models.Match, a, b uuid.UUID) {
	t.Helper()
	match, a, b = h.duel(t, fee)
	for _, u := range []uuid.UUID{a, b} {
		if _, err := h.ready.SetReady(context.Background(), match.ID, u); err != nil {
			t.Fatalf("SetReady: %v", err)
		}
	}
	return match, a, b
}

func (h *harness) declare(t *testing.T, matchID, userID uuid.UUID, choice string) *DeclareOutcome {
	t.Helper()
	out, err := h.consensus.DeclareResult(context.Background(), DeclareResultParams{MatchID: matchID, UserID: userID, Choice: choice})
	if err != nil {
		t.Fatalf("DeclareResult: %v", err)
	}
	return out
}

func (h *harness) status(t *testing.T, matchID uuid.UUID) string {
	t.Helper()
	m, err := h.db.Matches.GetByID(context.Background(), matchID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return m.Status
}

func (h *harness) participants(t *testing.T, matchID uuid.UUID) []*models.Participant {
	t.Helper()
	ps, err := h.db.Participants.ListByMatch(context.Background(), matchID)
	if err != nil {
		t.Fatalf("ListByMatch: %v", err)
	}
	return ps
}

func (h *harness) assertWallet(t *testing.T, userID uuid.UUID, balance, locked string) {
	t.Helper()
	w := h.db.Wallet(userID)
	if !w.Balance.Equal(dec(balance)) || !w.LockedBalance.Equal(dec(locked)) {
		t.Errorf("wallet %s: got balance %s locked %s, want %s / %s", userID, w.Balance, w.LockedBalance, balance, locked)
	}
}

// assertConserved checks that every wallet equals the sum of its ledger
// entries and that the system holds exactly what was deposited.
func (h *harness) assertConserved(t *testing.T) {
	t.Helper()
	perUser := map[uuid.UUID]decimal.Decimal{}
	deposits := decimal.Zero
	for _, tx := range h.db.AllTransactions() {
		perUser[tx.UserID] = perUser[tx.UserID].Add(tx.Holdings())
		if tx.Kind == models.TxKindDeposit {
			deposits = deposits.Add(tx.Amount)
		}
	}
	total := decimal.Zero
	for _, w := range h.db.AllWallets() {
		if w.Balance.IsNegative() || w.LockedBalance.IsNegative() {
			t.Errorf("wallet %s is negative: %s / %s", w.UserID, w.Balance, w.LockedBalance)
		}
		if !w.Holdings().Equal(perUser[w.UserID]) {
			t.Errorf("wallet %s holds %s, ledger says %s", w.UserID, w.Holdings(), perUser[w.UserID])
		}
		total = total.Add(w.Holdings())
	}
	if !total.Equal(deposits) {
		t.Errorf("system holds %s, deposits total %s", total, deposits)
	}
}

func (h *harness) countTx(kind string, matchID uuid.UUID) int {
	n := 0
	for _, tx := range h.db.AllTransactions() {
		if tx.Kind == kind && tx.MatchID != nil && *tx.MatchID == matchID {
			n++
		}
	}
	return n
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (h *harness) events(t *testing.T, matchID uuid.UUID, afterID int64) []*models.MatchEvent {
	t.Helper()
	evs, err := h.machine.ListEvents(context.Background(), matchID, afterID, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return evs
}
