package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// CreateMatchParams describes a new wager. Teammates, when set, are seated on
// side A with the creator paying their entry fees.
type CreateMatchParams struct {
	CreatorID uuid.UUID
	TeamSize  int
	EntryFee  decimal.Decimal
	FirstTo   int
	ExpiresAt time.Time
	Teammates []uuid.UUID
}

// JoinMatchParams seats a user, and optionally covered teammates, on a side.
// An empty Side picks B when the group fits there, else A.
type JoinMatchParams struct {
	MatchID   uuid.UUID
	UserID    uuid.UUID
	Side      string
	Teammates []uuid.UUID
}

// JoinResult is returned by a successful join.
type JoinResult struct {
	Match *models.Match `json:"match"`
	Side  string        `json:"side"`
	Full  bool          `json:"full"`
}

// MatchView is a read-only snapshot of a match.
type MatchView struct {
	Match        *models.Match         `json:"match"`
	Participants []*models.Participant `json:"participants"`
	Result       *models.MatchResult   `json:"result,omitempty"`
	CaptainA     *uuid.UUID            `json:"captain_a,omitempty"`
	CaptainB     *uuid.UUID            `json:"captain_b,omitempty"`
}

// CreateMatch opens a match and locks the creator's stake in the same transaction.
func (m *Machine) CreateMatch(ctx context.Context, p CreateMatchParams) (*models.Match, error) {
	maxTeam := m.MaxTeamSize
	if maxTeam <= 0 {
		maxTeam = defaultMaxTeamSize
	}
	if p.TeamSize < 1 || p.TeamSize > maxTeam {
		return nil, fmt.Errorf("%w: team_size must be between 1 and %d", ErrInvalidInput, maxTeam)
	}
	if err := validateFee(p.EntryFee); err != nil {
		return nil, err
	}
	if p.FirstTo < 1 {
		return nil, fmt.Errorf("%w: first_to must be at least 1", ErrInvalidInput)
	}
	group, err := seatGroup(p.CreatorID, p.Teammates, p.TeamSize)
	if err != nil {
		return nil, err
	}

	now := m.now()
	expiresAt := p.ExpiresAt
	if expiresAt.IsZero() {
		expiry := m.MatchExpiry
		if expiry <= 0 {
			expiry = defaultMatchExpiry
		}
		expiresAt = now.Add(expiry)
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}

	match := &models.Match{
		ID:        uuid.New(),
		CreatorID: p.CreatorID,
		TeamSize:  p.TeamSize,
		EntryFee:  p.EntryFee,
		FirstTo:   p.FirstTo,
		Status:    models.MatchStatusOpen,
		ExpiresAt: expiresAt,
	}

	tx, err := m.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := m.Matches.CreateTx(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	if err := m.seat(ctx, tx, match, p.CreatorID, models.SideA, group); err != nil {
		return nil, err
	}
	actor := p.CreatorID
	if err := m.appendEvent(ctx, tx, match.ID, "", models.MatchStatusOpen, &actor, map[string]any{
		"team_size": match.TeamSize,
		"entry_fee": match.EntryFee.StringFixed(2),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	m.Logger.Info("match created", "match_id", match.ID, "creator_id", match.CreatorID, "team_size", match.TeamSize, "entry_fee", match.EntryFee.StringFixed(2))
	return match, nil
}

// JoinMatch seats the caller's group and locks the stake atomically. The
// match becomes full when both sides reach team_size. Open matches past
// expires_at take no new joins.
func (m *Machine) JoinMatch(ctx context.Context, p JoinMatchParams) (*JoinResult, error) {
	if p.Side != "" && p.Side != models.SideA && p.Side != models.SideB {
		return nil, fmt.Errorf("%w: side must be A or B", ErrInvalidInput)
	}

	var res *JoinResult
	err := m.inMatchTx(ctx, p.MatchID, func(tx pgx.Tx, match *models.Match) error {
		switch match.Status {
		case models.MatchStatusOpen:
			if !m.now().Before(match.ExpiresAt) {
				return fmt.Errorf("%w: match expired at %s", ErrInvalidStateTransition, match.ExpiresAt.Format(time.RFC3339))
			}
		case models.MatchStatusFull, models.MatchStatusReadyCheck,
			models.MatchStatusInProgress, models.MatchStatusResultPending:
			return ErrMatchFull
		default:
			return fmt.Errorf("%w: cannot join a %s match", ErrInvalidStateTransition, match.Status)
		}

		group, err := seatGroup(p.UserID, p.Teammates, match.TeamSize)
		if err != nil {
			return err
		}
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		for _, u := range group {
			if findParticipant(ps, u) != nil {
				return ErrAlreadyJoined
			}
		}

		side := p.Side
		if side == "" {
			side = pickSide(ps, match.TeamSize, len(group))
		}
		if side == "" || countSide(ps, side)+len(group) > match.TeamSize {
			return ErrMatchFull
		}

		if err := m.seat(ctx, tx, match, p.UserID, side, group); err != nil {
			return err
		}

		res = &JoinResult{Match: match, Side: side}
		if countSide(ps, models.SideA)+countSide(ps, models.SideB)+len(group) == match.Capacity() {
			actor := p.UserID
			if err := m.transition(ctx, tx, match, models.MatchStatusFull, &actor, nil); err != nil {
				return err
			}
			res.Full = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelMatch lets the creator withdraw an open match; every stake is refunded.
func (m *Machine) CancelMatch(ctx context.Context, matchID, userID uuid.UUID) (*models.Match, error) {
	var out *models.Match
	err := m.inMatchTx(ctx, matchID, func(tx pgx.Tx, match *models.Match) error {
		if match.CreatorID != userID {
			return ErrUnauthorized
		}
		if match.Status != models.MatchStatusOpen {
			return fmt.Errorf("%w: cannot cancel a %s match", ErrInvalidStateTransition, match.Status)
		}
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if err := m.settleRefund(ctx, tx, match, ps); err != nil {
			return err
		}
		if err := m.transition(ctx, tx, match, models.MatchStatusCanceled, &userID, nil); err != nil {
			return err
		}
		out = match
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetMatch returns the match with its participants, result and derived captains.
func (m *Machine) GetMatch(ctx context.Context, matchID uuid.UUID) (*MatchView, error) {
	match, err := m.Matches.GetByID(ctx, matchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	ps, err := m.Participants.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	res, err := m.Results.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	view := &MatchView{Match: match, Participants: ps, Result: res}
	if id, ok := Captain(match, ps, models.SideA); ok {
		view.CaptainA = &id
	}
	if id, ok := Captain(match, ps, models.SideB); ok {
		view.CaptainB = &id
	}
	return view, nil
}

// ListEvents returns outbox records for a match newer than afterID.
func (m *Machine) ListEvents(ctx context.Context, matchID uuid.UUID, afterID int64, limit int) ([]*models.MatchEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return m.Events.ListByMatch(ctx, matchID, afterID, limit)
}

// seat inserts group on side, all paid by payer, and locks the group's stake.
func (m *Machine) seat(ctx context.Context, tx pgx.Tx, match *models.Match, payer uuid.UUID, side string, group []uuid.UUID) error {
	stake := match.EntryFee.Mul(decimal.NewFromInt(int64(len(group))))
	if err := m.Ledger.Lock(ctx, tx, payer, stake, match.ID); err != nil {
		return err
	}
	for _, u := range group {
		if err := m.Participants.CreateTx(ctx, tx, &models.Participant{
			ID:       uuid.New(),
			MatchID:  match.ID,
			UserID:   u,
			TeamSide: side,
			PaidBy:   payer,
			Status:   models.ParticipantJoined,
		}); err != nil {
			return fmt.Errorf("create participant: %w", err)
		}
	}
	return nil
}

// seatGroup returns the payer followed by distinct covered teammates.
func seatGroup(payer uuid.UUID, teammates []uuid.UUID, teamSize int) ([]uuid.UUID, error) {
	if payer == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	group := []uuid.UUID{payer}
	seen := map[uuid.UUID]bool{payer: true}
	for _, t := range teammates {
		if t == uuid.Nil || seen[t] {
			return nil, fmt.Errorf("%w: teammates must be distinct users", ErrInvalidInput)
		}
		seen[t] = true
		group = append(group, t)
	}
	if len(group) > teamSize {
		return nil, fmt.Errorf("%w: group of %d exceeds team size %d", ErrInvalidInput, len(group), teamSize)
	}
	return group, nil
}

func pickSide(ps []*models.Participant, teamSize, groupSize int) string {
	for _, side := range []string{models.SideB, models.SideA} {
		if countSide(ps, side)+groupSize <= teamSize {
			return side
		}
	}
	return ""
}

func validateFee(fee decimal.Decimal) error {
	if !fee.IsPositive() {
		return fmt.Errorf("%w: entry_fee must be positive", ErrInvalidInput)
	}
	if !fee.Equal(fee.Round(2)) {
		return fmt.Errorf("%w: entry_fee has more than two decimal places", ErrInvalidInput)
	}
	return nil
}
