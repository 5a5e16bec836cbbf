package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// ReadyResult reports the ready-check state after a SetReady call.
type ReadyResult struct {
	AllReady     bool   `json:"all_ready"`
	AlreadyReady bool   `json:"already_ready"`
	ReadyCount   int    `json:"ready_count"`
	Capacity     int    `json:"capacity"`
	Status       string `json:"status"`
}

// ReadyCheckCoordinator gates the start of a full match on every participant
// confirming readiness. Stalled checks are expired by the reclaimer.
type ReadyCheckCoordinator struct {
	Machine *Machine
}

func NewReadyCheckCoordinator(m *Machine) *ReadyCheckCoordinator {
	return &ReadyCheckCoordinator{Machine: m}
}

// SetReady marks userID ready. Re-readying is a no-op reported through
// AlreadyReady. When the last participant readies, the match starts.
func (c *ReadyCheckCoordinator) SetReady(ctx context.Context, matchID, userID uuid.UUID) (*ReadyResult, error) {
	m := c.Machine
	var res *ReadyResult
	err := m.inMatchTx(ctx, matchID, func(tx pgx.Tx, match *models.Match) error {
		ps, err := m.Participants.ListByMatchTx(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		me := findParticipant(ps, userID)
		if me == nil {
			return ErrNotParticipant
		}

		res = &ReadyResult{Capacity: match.Capacity()}
		if me.Ready {
			res.AlreadyReady = true
			res.ReadyCount = countReady(ps)
			res.AllReady = res.ReadyCount == res.Capacity
			res.Status = match.Status
			return nil
		}
		if match.Status != models.MatchStatusFull && match.Status != models.MatchStatusReadyCheck {
			return fmt.Errorf("%w: cannot ready up in a %s match", ErrInvalidStateTransition, match.Status)
		}

		me.Ready = true
		if err := m.Participants.UpdateTx(ctx, tx, me); err != nil {
			return err
		}
		res.ReadyCount = countReady(ps)

		if match.Status == models.MatchStatusFull {
			if err := m.transition(ctx, tx, match, models.MatchStatusReadyCheck, &userID, nil); err != nil {
				return err
			}
		}
		if res.ReadyCount == res.Capacity {
			if err := m.transition(ctx, tx, match, models.MatchStatusInProgress, &userID, map[string]any{
				"ready_count": res.ReadyCount,
			}); err != nil {
				return err
			}
			res.AllReady = true
		}
		res.Status = match.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func countReady(ps []*models.Participant) int {
	n := 0
	for _, p := range ps {
		if p.Ready {
			n++
		}
	}
	return n
}
