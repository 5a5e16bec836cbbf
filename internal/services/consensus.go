package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// DeclareResultParams is one side's self-reported outcome. Side may be empty,
// in which case the caller's own side is used.
type DeclareResultParams struct {
	MatchID uuid.UUID
	UserID  uuid.UUID
	Side    string
	Choice  string
}

// DeclareOutcome is the verdict after a declaration: pending until both sides
// have declared, then confirmed or disputed.
type DeclareOutcome struct {
	Status       string              `json:"status"`
	MatchStatus  string              `json:"match_status"`
	WinnerSide   string              `json:"winner_side,omitempty"`
	WinnerUserID *uuid.UUID          `json:"winner_user_id,omitempty"`
	Result       *models.MatchResult `json:"result"`
}

// ResultConsensusResolver collects each side's declaration and derives the
// match verdict.
type ResultConsensusResolver struct {
	Machine *Machine
}

func NewResultConsensusResolver(m *Machine) *ResultConsensusResolver {
	return &ResultConsensusResolver{Machine: m}
}

// DeclareResult records the captain's choice for their side. A WIN/LOSS pair
// completes the match and pays out; any other pair disputes it.
func (r *ResultConsensusResolver) DeclareResult(ctx context.Context, p DeclareResultParams) (*DeclareOutcome, error) {
	if p.Choice != models.ChoiceWin && p.Choice != models.ChoiceLoss {
		return nil, fmt.Errorf("%w: choice must be WIN or LOSS", ErrInvalidInput)
	}
	if p.Side != "" && p.Side != models.SideA && p.Side != models.SideB {
		return nil, fmt.Errorf("%w: side must be A or B", ErrInvalidInput)
	}

	m := r.Machine
	var out *DeclareOutcome
	err := m.inMatchTx(ctx, p.MatchID, func(tx pgx.Tx, match *models.Match) error {
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		me := findParticipant(ps, p.UserID)
		if me == nil {
			return ErrNotParticipant
		}
		side := p.Side
		if side == "" {
			side = me.TeamSide
		}
		if side != me.TeamSide {
			return fmt.Errorf("%w: cannot declare for the opposing side", ErrUnauthorized)
		}
		if captain, ok := Captain(match, ps, side); !ok || captain != p.UserID {
			return fmt.Errorf("%w: only the side captain may declare", ErrUnauthorized)
		}

		res, err := m.Results.GetByMatchIDForUpdate(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if res != nil && res.ChoiceFor(side) != "" {
			return ErrDuplicateResultDeclaration
		}
		if match.Status != models.MatchStatusInProgress && match.Status != models.MatchStatusResultPending {
			return fmt.Errorf("%w: cannot declare a result for a %s match", ErrInvalidStateTransition, match.Status)
		}
		if res == nil {
			res = &models.MatchResult{MatchID: match.ID, Status: models.ResultStatusPending}
		}

		res.SetChoice(side, p.Choice)
		choice := p.Choice
		me.ResultChoice = &choice
		if err := m.Participants.UpdateTx(ctx, tx, me); err != nil {
			return err
		}

		actor := p.UserID
		out = &DeclareOutcome{Result: res}
		other := res.ChoiceFor(models.OtherSide(side))
		switch {
		case other == "":
			res.Status = models.ResultStatusPending
			if err := m.Results.UpsertTx(ctx, tx, res); err != nil {
				return err
			}
			if match.Status == models.MatchStatusInProgress {
				if err := m.transition(ctx, tx, match, models.MatchStatusResultPending, &actor, map[string]any{
					"declared_side": side,
				}); err != nil {
					return err
				}
			}

		case other != p.Choice:
			winnerSide := side
			if p.Choice == models.ChoiceLoss {
				winnerSide = models.OtherSide(side)
			}
			winner, _ := Captain(match, ps, winnerSide)
			res.Status = models.ResultStatusConfirmed
			res.WinnerSide = &winnerSide
			res.WinnerUserID = &winner
			res.WinnerConfirmed = true
			res.LoserConfirmed = true
			if err := m.Results.UpsertTx(ctx, tx, res); err != nil {
				return err
			}
			plan, err := m.settlePayout(ctx, tx, match, ps, winnerSide)
			if err != nil {
				return err
			}
			if err := m.transition(ctx, tx, match, models.MatchStatusCompleted, &actor, map[string]any{
				"winner_side": winnerSide,
				"payout":      plan.Payout.StringFixed(2),
				"fee":         plan.Fee.StringFixed(2),
			}); err != nil {
				return err
			}
			out.WinnerSide = winnerSide
			out.WinnerUserID = &winner

		default:
			reason := fmt.Sprintf("both sides declared %s", p.Choice)
			res.Status = models.ResultStatusDisputed
			res.DisputeReason = &reason
			if err := m.Results.UpsertTx(ctx, tx, res); err != nil {
				return err
			}
			if err := m.transition(ctx, tx, match, models.MatchStatusDisputed, &actor, map[string]any{
				"reason": reason,
			}); err != nil {
				return err
			}
		}

		out.Status = res.Status
		out.MatchStatus = match.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
