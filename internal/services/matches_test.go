package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// ---------------------------------------------------------------------------
// 1. Transition table
// ---------------------------------------------------------------------------

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.MatchStatusOpen, models.MatchStatusFull, true},
		{models.MatchStatusOpen, models.MatchStatusCanceled, true},
		{models.MatchStatusOpen, models.MatchStatusInProgress, false},
		{models.MatchStatusFull, models.MatchStatusReadyCheck, true},
		{models.MatchStatusFull, models.MatchStatusCanceled, false},
		{models.MatchStatusReadyCheck, models.MatchStatusInProgress, true},
		{models.MatchStatusInProgress, models.MatchStatusResultPending, true},
		{models.MatchStatusResultPending, models.MatchStatusCompleted, true},
		{models.MatchStatusResultPending, models.MatchStatusDisputed, true},
		{models.MatchStatusDisputed, models.MatchStatusAdminResolved, true},
		{models.MatchStatusDisputed, models.MatchStatusExpired, false},
		{models.MatchStatusCompleted, models.MatchStatusDisputed, false},
		{models.MatchStatusExpired, models.MatchStatusOpen, false},
		{models.MatchStatusCanceled, models.MatchStatusOpen, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. CreateMatch
// ---------------------------------------------------------------------------

func TestCreateMatch_LocksStake(t *testing.T) {
	h := newHarness(t)
	creator := h.player(t, "50")

	m := h.createMatch(t, creator, "10", 1)

	if m.Status != models.MatchStatusOpen {
		t.Errorf("status: got %s, want open", m.Status)
	}
	if !m.ExpiresAt.Equal(h.now.Add(time.Hour)) {
		t.Errorf("expires_at: got %s, want now+1h", m.ExpiresAt)
	}
	h.assertWallet(t, creator, "40", "10")

	ps := h.participants(t, m.ID)
	if len(ps) != 1 || ps[0].TeamSide != models.SideA || ps[0].PaidBy != creator {
		t.Fatalf("participants: %+v", ps)
	}
	events := h.events(t, m.ID, 0)
	if len(events) != 1 || events[0].FromStatus != "" || events[0].ToStatus != models.MatchStatusOpen {
		t.Errorf("creation event: %+v", events)
	}
	h.assertConserved(t)
}

func TestCreateMatch_InsufficientFunds(t *testing.T) {
	h := newHarness(t)
	creator := h.player(t, "5")
	before := len(h.db.AllTransactions())

	_, err := h.machine.CreateMatch(context.Background(), CreateMatchParams{
		CreatorID: creator, TeamSize: 1, EntryFee: dec("10"), FirstTo: 1,
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	h.assertWallet(t, creator, "5", "0")
	if got := len(h.db.AllTransactions()); got != before {
		t.Errorf("transactions: got %d, want %d", got, before)
	}
}

func TestCreateMatch_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	creator := h.player(t, "100")

	cases := map[string]CreateMatchParams{
		"zero team size":     {TeamSize: 0, EntryFee: dec("1"), FirstTo: 1},
		"team too large":     {TeamSize: 5, EntryFee: dec("1"), FirstTo: 1},
		"zero fee":           {TeamSize: 1, EntryFee: dec("0"), FirstTo: 1},
		"sub-cent fee":       {TeamSize: 1, EntryFee: dec("1.005"), FirstTo: 1},
		"zero first_to":      {TeamSize: 1, EntryFee: dec("1"), FirstTo: 0},
		"past expiry":        {TeamSize: 1, EntryFee: dec("1"), FirstTo: 1, ExpiresAt: h.now.Add(-time.Minute)},
		"group exceeds team": {TeamSize: 1, EntryFee: dec("1"), FirstTo: 1, Teammates: []uuid.UUID{uuid.New()}},
		"duplicate teammate": {TeamSize: 3, EntryFee: dec("1"), FirstTo: 1, Teammates: []uuid.UUID{creator}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			p.CreatorID = creator
			if _, err := h.machine.CreateMatch(context.Background(), p); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	h.assertWallet(t, creator, "100", "0")
}

// ---------------------------------------------------------------------------
// 3. JoinMatch
// ---------------------------------------------------------------------------

func TestJoinMatch_FillsMatch(t *testing.T) {
	h := newHarness(t)
	a, b := h.player(t, "50"), h.player(t, "50")
	m := h.createMatch(t, a, "10", 1)

	res := h.join(t, m.ID, b, "")

	if !res.Full || res.Side != models.SideB {
		t.Errorf("join result: %+v", res)
	}
	if res.Match.Status != models.MatchStatusFull || res.Match.FilledAt == nil {
		t.Errorf("match after fill: status %s filled_at %v", res.Match.Status, res.Match.FilledAt)
	}
	h.assertWallet(t, b, "40", "10")
	h.assertConserved(t)
}

func TestJoinMatch_Capacity(t *testing.T) {
	h := newHarness(t)
	m, _, _ := h.duel(t, "10")
	late := h.player(t, "50")

	_, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: m.ID, UserID: late})
	if !errors.Is(err, ErrMatchFull) {
		t.Fatalf("expected ErrMatchFull, got %v", err)
	}
	h.assertWallet(t, late, "50", "0")
	if n := len(h.participants(t, m.ID)); n != 2 {
		t.Errorf("participants: got %d, want 2", n)
	}
}

func TestJoinMatch_AlreadyJoined(t *testing.T) {
	h := newHarness(t)
	creator := h.player(t, "50")
	m := h.createMatch(t, creator, "10", 2)

	_, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: m.ID, UserID: creator})
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	h.assertWallet(t, creator, "40", "10")
}

func TestJoinMatch_InsufficientFundsLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	creator, poor := h.player(t, "50"), h.player(t, "5")
	m := h.createMatch(t, creator, "10", 1)
	before := len(h.db.AllTransactions())

	_, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: m.ID, UserID: poor})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if n := len(h.participants(t, m.ID)); n != 1 {
		t.Errorf("participants: got %d, want 1", n)
	}
	if s := h.status(t, m.ID); s != models.MatchStatusOpen {
		t.Errorf("status: got %s, want open", s)
	}
	if got := len(h.db.AllTransactions()); got != before {
		t.Errorf("transactions: got %d, want %d", got, before)
	}
	h.assertWallet(t, poor, "5", "0")
}

func TestJoinMatch_SideSelection(t *testing.T) {
	h := newHarness(t)
	creator := h.player(t, "50")
	m := h.createMatch(t, creator, "5", 2)

	if res := h.join(t, m.ID, h.player(t, "50"), ""); res.Side != models.SideB {
		t.Errorf("default side: got %s, want B", res.Side)
	}
	if res := h.join(t, m.ID, h.player(t, "50"), models.SideA); res.Side != models.SideA || res.Full {
		t.Errorf("explicit side A: %+v", res)
	}

	_, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: m.ID, UserID: h.player(t, "50"), Side: models.SideA})
	if !errors.Is(err, ErrMatchFull) {
		t.Fatalf("side A at capacity: expected ErrMatchFull, got %v", err)
	}

	if res := h.join(t, m.ID, h.player(t, "50"), ""); res.Side != models.SideB || !res.Full {
		t.Errorf("last seat: %+v", res)
	}
}

func TestJoinMatch_CoverAll(t *testing.T) {
	h := newHarness(t)
	captainA, captainB := h.player(t, "100"), h.player(t, "100")
	mateA, mateB := h.player(t, "0"), h.player(t, "0")

	m, err := h.machine.CreateMatch(context.Background(), CreateMatchParams{
		CreatorID: captainA, TeamSize: 2, EntryFee: dec("10"), FirstTo: 1, Teammates: []uuid.UUID{mateA},
	})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	h.assertWallet(t, captainA, "80", "20")

	res, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{
		MatchID: m.ID, UserID: captainB, Teammates: []uuid.UUID{mateB},
	})
	if err != nil {
		t.Fatalf("JoinMatch: %v", err)
	}
	if !res.Full {
		t.Error("expected the match to be full")
	}
	h.assertWallet(t, captainB, "80", "20")
	h.assertWallet(t, mateB, "0", "0")

	for _, p := range h.participants(t, m.ID) {
		want := captainA
		if p.TeamSide == models.SideB {
			want = captainB
		}
		if p.PaidBy != want {
			t.Errorf("participant %s paid_by %s, want %s", p.UserID, p.PaidBy, want)
		}
	}
}

func TestJoinMatch_ConcurrentLastSlot(t *testing.T) {
	h := newHarness(t)
	creator := h.player(t, "50")
	m := h.createMatch(t, creator, "10", 1)

	const n = 8
	joiners := make([]uuid.UUID, n)
	for i := range joiners {
		joiners[i] = h.player(t, "50")
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, u := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: m.ID, UserID: u})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrMatchFull):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful joins: got %d, want 1", ok)
	}
	if n := len(h.participants(t, m.ID)); n != 2 {
		t.Errorf("participants: got %d, want 2", n)
	}
	h.assertConserved(t)
}

func TestJoinMatch_AfterExpiry(t *testing.T) {
	h := newHarness(t)
	m := h.createMatch(t, h.player(t, "50"), "10", 1)
	late := h.player(t, "50")

	h.advance(time.Hour)
	_, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: m.ID, UserID: late})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	h.assertWallet(t, late, "50", "0")
	if n := len(h.participants(t, m.ID)); n != 1 {
		t.Errorf("participants: got %d, want 1", n)
	}
}

func TestJoinMatch_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.machine.JoinMatch(context.Background(), JoinMatchParams{MatchID: uuid.New(), UserID: h.player(t, "10")})
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 4. CancelMatch
// ---------------------------------------------------------------------------

func TestCancelMatch(t *testing.T) {
	h := newHarness(t)
	creator, mate, other := h.player(t, "50"), h.player(t, "0"), h.player(t, "50")
	m, err := h.machine.CreateMatch(context.Background(), CreateMatchParams{
		CreatorID: creator, TeamSize: 2, EntryFee: dec("10"), FirstTo: 1, Teammates: []uuid.UUID{mate},
	})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	h.join(t, m.ID, other, "")

	if _, err := h.machine.CancelMatch(context.Background(), m.ID, other); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-creator cancel: expected ErrUnauthorized, got %v", err)
	}

	got, err := h.machine.CancelMatch(context.Background(), m.ID, creator)
	if err != nil {
		t.Fatalf("CancelMatch: %v", err)
	}
	if got.Status != models.MatchStatusCanceled || got.FinishedAt == nil {
		t.Errorf("canceled match: %+v", got)
	}
	h.assertWallet(t, creator, "50", "0")
	h.assertWallet(t, other, "50", "0")
	if n := h.countTx(models.TxKindFee, m.ID); n != 0 {
		t.Errorf("fee entries on cancel: %d", n)
	}
	for _, p := range h.participants(t, m.ID) {
		if p.Status != models.ParticipantRefunded {
			t.Errorf("participant %s status %s, want refunded", p.UserID, p.Status)
		}
	}

	if _, err := h.machine.CancelMatch(context.Background(), m.ID, creator); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("second cancel: expected ErrInvalidStateTransition, got %v", err)
	}
	h.assertConserved(t)
}

func TestCancelMatch_OnlyWhileOpen(t *testing.T) {
	h := newHarness(t)
	m, a, _ := h.duel(t, "10")

	if _, err := h.machine.CancelMatch(context.Background(), m.ID, a); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	h.assertWallet(t, a, "40", "10")
}

// ---------------------------------------------------------------------------
// 5. Views, captains and events
// ---------------------------------------------------------------------------

func TestCaptain(t *testing.T) {
	creator, mate, b1, b2 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	m := &models.Match{CreatorID: creator, TeamSize: 2}
	ps := []*models.Participant{
		{UserID: mate, TeamSide: models.SideA},
		{UserID: creator, TeamSide: models.SideA},
		{UserID: b1, TeamSide: models.SideB},
		{UserID: b2, TeamSide: models.SideB},
	}

	if got, ok := Captain(m, ps, models.SideA); !ok || got != creator {
		t.Errorf("side A captain: got %s, want creator", got)
	}
	if got, ok := Captain(m, ps, models.SideB); !ok || got != b1 {
		t.Errorf("side B captain: got %s, want earliest joiner", got)
	}
	if _, ok := Captain(m, ps[:2], models.SideB); ok {
		t.Error("empty side should have no captain")
	}
}

func TestGetMatchAndEvents(t *testing.T) {
	h := newHarness(t)
	m, a, b := h.startedDuel(t, "10")

	view, err := h.machine.GetMatch(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if view.Match.Status != models.MatchStatusInProgress || len(view.Participants) != 2 {
		t.Errorf("view: status %s, %d participants", view.Match.Status, len(view.Participants))
	}
	if view.CaptainA == nil || *view.CaptainA != a || view.CaptainB == nil || *view.CaptainB != b {
		t.Errorf("captains: %v %v", view.CaptainA, view.CaptainB)
	}

	events := h.events(t, m.ID, 0)
	want := []string{models.MatchStatusOpen, models.MatchStatusFull, models.MatchStatusReadyCheck, models.MatchStatusInProgress}
	if len(events) != len(want) {
		t.Fatalf("events: got %d, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.ToStatus != want[i] {
			t.Errorf("event %d: got %s, want %s", i, e.ToStatus, want[i])
		}
	}

	tail := h.events(t, m.ID, events[1].ID)
	if len(tail) != 2 {
		t.Errorf("events after %d: got %d, want 2", events[1].ID, len(tail))
	}

	if _, err := h.machine.GetMatch(context.Background(), uuid.New()); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("unknown match: expected ErrMatchNotFound, got %v", err)
	}
}
