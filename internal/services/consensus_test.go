package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// ---------------------------------------------------------------------------
// 1. Verdicts
// ---------------------------------------------------------------------------

func TestDeclareResult_Confirm(t *testing.T) {
	h := newHarness(t)
	m, a, b := h.startedDuel(t, "10")

	first := h.declare(t, m.ID, a, models.ChoiceWin)
	if first.Status != models.ResultStatusPending || first.MatchStatus != models.MatchStatusResultPending {
		t.Errorf("after one declaration: %+v", first)
	}
	h.assertWallet(t, a, "40", "10")

	out := h.declare(t, m.ID, b, models.ChoiceLoss)
	if out.Status != models.ResultStatusConfirmed || out.MatchStatus != models.MatchStatusCompleted {
		t.Fatalf("verdict: %+v", out)
	}
	if out.WinnerSide != models.SideA || out.WinnerUserID == nil || *out.WinnerUserID != a {
		t.Errorf("winner: side %s user %v", out.WinnerSide, out.WinnerUserID)
	}

	// pool 20, fee 1.00, payout 19.00
	h.assertWallet(t, a, "59", "0")
	h.assertWallet(t, b, "40", "0")
	h.assertWallet(t, models.PlatformUserID, "1", "0")
	if n := h.countTx(models.TxKindPayout, m.ID); n != 1 {
		t.Errorf("payout entries: got %d, want 1", n)
	}
	if n := h.countTx(models.TxKindFee, m.ID); n != 2 {
		t.Errorf("fee entries: got %d, want 2 (loser stake and platform)", n)
	}
	for _, p := range h.participants(t, m.ID) {
		want := models.ParticipantLost
		if p.UserID == a {
			want = models.ParticipantWon
		}
		if p.Status != want {
			t.Errorf("participant %s: got %s, want %s", p.UserID, p.Status, want)
		}
	}
	h.assertConserved(t)
}

func TestDeclareResult_LossFirst(t *testing.T) {
	h := newHarness(t)
	m, a, b := h.startedDuel(t, "10")

	h.declare(t, m.ID, a, models.ChoiceLoss)
	out := h.declare(t, m.ID, b, models.ChoiceWin)

	if out.WinnerSide != models.SideB {
		t.Fatalf("winner side: got %s, want B", out.WinnerSide)
	}
	h.assertWallet(t, b, "59", "0")
	h.assertWallet(t, a, "40", "0")
}

func TestDeclareResult_Conflicts(t *testing.T) {
	for _, choice := range []string{models.ChoiceWin, models.ChoiceLoss} {
		t.Run(choice, func(t *testing.T) {
			h := newHarness(t)
			m, a, b := h.startedDuel(t, "10")

			h.declare(t, m.ID, a, choice)
			out := h.declare(t, m.ID, b, choice)

			if out.Status != models.ResultStatusDisputed || out.MatchStatus != models.MatchStatusDisputed {
				t.Fatalf("verdict: %+v", out)
			}
			if out.Result.DisputeReason == nil {
				t.Error("dispute reason not recorded")
			}
			h.assertWallet(t, a, "40", "10")
			h.assertWallet(t, b, "40", "10")
			if n := h.countTx(models.TxKindFee, m.ID); n != 0 {
				t.Errorf("fee entries before resolution: %d", n)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 2. Rejections
// ---------------------------------------------------------------------------

func TestDeclareResult_Duplicate(t *testing.T) {
	h := newHarness(t)
	m, a, _ := h.startedDuel(t, "10")
	h.declare(t, m.ID, a, models.ChoiceWin)

	_, err := h.consensus.DeclareResult(context.Background(), DeclareResultParams{MatchID: m.ID, UserID: a, Choice: models.ChoiceLoss})
	if !errors.Is(err, ErrDuplicateResultDeclaration) {
		t.Fatalf("expected ErrDuplicateResultDeclaration, got %v", err)
	}
}

func TestDeclareResult_OnlyCaptains(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := h.player(t, "50")
	m := h.createMatch(t, creator, "5", 2)
	mateA := h.player(t, "50")
	h.join(t, m.ID, mateA, models.SideA)
	captainB, mateB := h.player(t, "50"), h.player(t, "50")
	h.join(t, m.ID, captainB, models.SideB)
	h.join(t, m.ID, mateB, models.SideB)
	for _, u := range []uuid.UUID{creator, mateA, captainB, mateB} {
		if _, err := h.ready.SetReady(ctx, m.ID, u); err != nil {
			t.Fatalf("SetReady: %v", err)
		}
	}

	cases := []struct {
		name string
		p    DeclareResultParams
		want error
	}{
		{"side A member", DeclareResultParams{UserID: mateA, Choice: models.ChoiceWin}, ErrUnauthorized},
		{"side B member", DeclareResultParams{UserID: mateB, Choice: models.ChoiceWin}, ErrUnauthorized},
		{"opposing side", DeclareResultParams{UserID: creator, Side: models.SideB, Choice: models.ChoiceLoss}, ErrUnauthorized},
		{"outsider", DeclareResultParams{UserID: uuid.New(), Choice: models.ChoiceWin}, ErrNotParticipant},
		{"bad choice", DeclareResultParams{UserID: creator, Choice: "DRAW"}, ErrInvalidInput},
	}
	for _, c := range cases {
		c.p.MatchID = m.ID
		if _, err := h.consensus.DeclareResult(ctx, c.p); !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}

	h.declare(t, m.ID, creator, models.ChoiceWin)
	out := h.declare(t, m.ID, captainB, models.ChoiceLoss)
	if out.Status != models.ResultStatusConfirmed {
		t.Fatalf("captains' verdict: %+v", out)
	}
	// pool 20, fee 1, 19 split across side A: 9.50 each.
	h.assertWallet(t, creator, "54.5", "0")
	h.assertWallet(t, mateA, "54.5", "0")
	h.assertConserved(t)
}

func TestDeclareResult_BeforeStart(t *testing.T) {
	h := newHarness(t)
	m, a, _ := h.duel(t, "10")

	_, err := h.consensus.DeclareResult(context.Background(), DeclareResultParams{MatchID: m.ID, UserID: a, Choice: models.ChoiceWin})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestDeclareResult_AfterCompletion(t *testing.T) {
	h := newHarness(t)
	m, a, b := h.startedDuel(t, "10")
	h.declare(t, m.ID, a, models.ChoiceWin)
	h.declare(t, m.ID, b, models.ChoiceLoss)

	_, err := h.consensus.DeclareResult(context.Background(), DeclareResultParams{MatchID: m.ID, UserID: b, Choice: models.ChoiceWin})
	if !errors.Is(err, ErrDuplicateResultDeclaration) {
		t.Fatalf("expected ErrDuplicateResultDeclaration, got %v", err)
	}
	h.assertWallet(t, a, "59", "0")
}
