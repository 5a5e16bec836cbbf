package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// RoleLookup resolves a user's role.
type RoleLookup interface {
	GetRole(ctx context.Context, userID uuid.UUID) (string, error)
}

// ResolveParams is an administrator's binding decision on a disputed match.
type ResolveParams struct {
	MatchID uuid.UUID
	AdminID uuid.UUID
	Action  string
	Notes   string
}

// DisputeResolver settles disputed matches on an administrator's decision.
type DisputeResolver struct {
	Machine *Machine
	Users   RoleLookup
}

func NewDisputeResolver(m *Machine, users RoleLookup) *DisputeResolver {
	return &DisputeResolver{Machine: m, Users: users}
}

// Resolve applies p.Action to a disputed match and moves it to admin_resolved.
// Side wins require notes; every resolution records the admin and notes.
func (d *DisputeResolver) Resolve(ctx context.Context, p ResolveParams) (*models.MatchResult, error) {
	role, err := d.Users.GetRole(ctx, p.AdminID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("look up role of %s: %w", p.AdminID, err)
	}
	if role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}

	notes := strings.TrimSpace(p.Notes)
	var winnerSide string
	switch p.Action {
	case models.ActionSideAWin:
		winnerSide = models.SideA
	case models.ActionSideBWin:
		winnerSide = models.SideB
	case models.ActionRefundBoth:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, p.Action)
	}
	if winnerSide != "" && notes == "" {
		return nil, fmt.Errorf("%w: notes are required to award a side", ErrInvalidInput)
	}

	m := d.Machine
	var out *models.MatchResult
	err = m.inMatchTx(ctx, p.MatchID, func(tx pgx.Tx, match *models.Match) error {
		if match.Status != models.MatchStatusDisputed {
			return fmt.Errorf("%w: cannot resolve a %s match", ErrInvalidStateTransition, match.Status)
		}
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		res, err := m.Results.GetByMatchIDForUpdate(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if res == nil {
			res = &models.MatchResult{MatchID: match.ID}
		}

		payload := map[string]any{"action": p.Action}
		if winnerSide != "" {
			plan, err := m.settlePayout(ctx, tx, match, ps, winnerSide)
			if err != nil {
				return err
			}
			winner, _ := Captain(match, ps, winnerSide)
			res.WinnerSide = &winnerSide
			res.WinnerUserID = &winner
			payload["winner_side"] = winnerSide
			payload["payout"] = plan.Payout.StringFixed(2)
		} else if err := m.settleRefund(ctx, tx, match, ps); err != nil {
			return err
		}

		now := m.now()
		action, adminID := p.Action, p.AdminID
		res.Status = models.ResultStatusResolved
		res.AdminAction = &action
		res.ResolvedBy = &adminID
		res.ResolvedAt = &now
		if notes != "" {
			res.AdminNotes = &notes
		}
		if err := m.Results.UpsertTx(ctx, tx, res); err != nil {
			return err
		}
		if err := m.transition(ctx, tx, match, models.MatchStatusAdminResolved, &adminID, payload); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.Logger.Info("dispute resolved", "match_id", p.MatchID, "admin_id", p.AdminID, "action", p.Action)
	return out, nil
}
