package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/ledger"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// MatchRepo is the match persistence used by the state machine and the reclaimer.
type MatchRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, m *models.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Match, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, m *models.Match) error
	ListStale(ctx context.Context, c models.StaleCriteria, limit int) ([]uuid.UUID, error)
}

// ParticipantRepo lists participants in join order.
type ParticipantRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Participant) error
	ListByMatchTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) ([]*models.Participant, error)
	ListByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.Participant, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Participant) error
}

// ResultRepo returns nil results (not an error) when no declaration exists.
type ResultRepo interface {
	GetByMatchIDForUpdate(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) (*models.MatchResult, error)
	GetByMatchID(ctx context.Context, matchID uuid.UUID) (*models.MatchResult, error)
	UpsertTx(ctx context.Context, tx pgx.Tx, r *models.MatchResult) error
	ListUnsettled(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// EventRepo is the match event outbox.
type EventRepo interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e *models.MatchEvent) error
	ListByMatch(ctx context.Context, matchID uuid.UUID, afterID int64, limit int) ([]*models.MatchEvent, error)
}

var transitions = map[string][]string{
	models.MatchStatusOpen:          {models.MatchStatusFull, models.MatchStatusCanceled, models.MatchStatusExpired},
	models.MatchStatusFull:          {models.MatchStatusReadyCheck, models.MatchStatusInProgress, models.MatchStatusExpired},
	models.MatchStatusReadyCheck:    {models.MatchStatusInProgress, models.MatchStatusExpired},
	models.MatchStatusInProgress:    {models.MatchStatusResultPending, models.MatchStatusCompleted, models.MatchStatusDisputed, models.MatchStatusExpired},
	models.MatchStatusResultPending: {models.MatchStatusCompleted, models.MatchStatusDisputed, models.MatchStatusExpired},
	models.MatchStatusDisputed:      {models.MatchStatusAdminResolved},
}

// CanTransition reports whether a match may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

const (
	defaultMaxTeamSize = 4
	defaultMatchExpiry = time.Hour
)

// Machine owns match status. Every mutation runs in one transaction that
// holds the match row lock, and each committed transition writes one outbox event.
type Machine struct {
	Pool         TxBeginner
	Matches      MatchRepo
	Participants ParticipantRepo
	Results      ResultRepo
	Events       EventRepo
	Ledger       *ledger.Ledger
	MaxTeamSize  int
	MatchExpiry  time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewMachine returns a Machine with default limits.
func NewMachine(
	pool TxBeginner,
	matches MatchRepo,
	participants ParticipantRepo,
	results ResultRepo,
	events EventRepo,
	l *ledger.Ledger,
	logger *slog.Logger,
) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		Pool:         pool,
		Matches:      matches,
		Participants: participants,
		Results:      results,
		Events:       events,
		Ledger:       l,
		MaxTeamSize:  defaultMaxTeamSize,
		MatchExpiry:  defaultMatchExpiry,
		Logger:       logger,
	}
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// inMatchTx runs fn with the match row locked and commits if fn succeeds.
func (m *Machine) inMatchTx(ctx context.Context, matchID uuid.UUID, fn func(tx pgx.Tx, match *models.Match) error) error {
	tx, err := m.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	match, err := m.Matches.GetByIDForUpdate(ctx, tx, matchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMatchNotFound
	}
	if err != nil {
		return fmt.Errorf("lock match %s: %w", matchID, err)
	}
	if err := fn(tx, match); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// transition moves match to status to inside tx and records the outbox event.
func (m *Machine) transition(ctx context.Context, tx pgx.Tx, match *models.Match, to string, actor *uuid.UUID, payload map[string]any) error {
	from := match.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	now := m.now()
	switch to {
	case models.MatchStatusFull:
		match.FilledAt = &now
	case models.MatchStatusInProgress:
		match.StartedAt = &now
	case models.MatchStatusCompleted, models.MatchStatusAdminResolved,
		models.MatchStatusCanceled, models.MatchStatusExpired:
		match.FinishedAt = &now
	}
	match.Status = to
	if err := m.Matches.UpdateStatusTx(ctx, tx, match); err != nil {
		return err
	}
	if err := m.appendEvent(ctx, tx, match.ID, from, to, actor, payload); err != nil {
		return err
	}
	m.Logger.Info("match transition", "match_id", match.ID, "from", from, "to", to)
	return nil
}

func (m *Machine) appendEvent(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, from, to string, actor *uuid.UUID, payload map[string]any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		raw = b
	}
	return m.Events.AppendTx(ctx, tx, &models.MatchEvent{
		MatchID:    matchID,
		Type:       models.MatchEventStatusChanged,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor,
		Payload:    raw,
	})
}

// settlePayout pays winnerSide and marks every participant won or lost.
func (m *Machine) settlePayout(ctx context.Context, tx pgx.Tx, match *models.Match, ps []*models.Participant, winnerSide string) (*ledger.Plan, error) {
	plan, err := ledger.PlanPayout(match.ID, match.EntryFee, m.Ledger.FeeRate, stakes(ps), winnerSide)
	if err != nil {
		return nil, fmt.Errorf("plan payout for match %s: %w", match.ID, err)
	}
	if err := m.Ledger.ApplySettlement(ctx, tx, plan); err != nil {
		return nil, err
	}
	for _, p := range ps {
		p.Status = models.ParticipantLost
		if p.TeamSide == winnerSide {
			p.Status = models.ParticipantWon
		}
		if err := m.Participants.UpdateTx(ctx, tx, p); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// settleRefund returns every stake to its payer.
func (m *Machine) settleRefund(ctx context.Context, tx pgx.Tx, match *models.Match, ps []*models.Participant) error {
	if len(ps) == 0 {
		return nil
	}
	plan := ledger.PlanRefund(match.ID, match.EntryFee, stakes(ps))
	if err := m.Ledger.ApplySettlement(ctx, tx, plan); err != nil {
		return err
	}
	for _, p := range ps {
		p.Status = models.ParticipantRefunded
		if err := m.Participants.UpdateTx(ctx, tx, p); err != nil {
			return err
		}
	}
	return nil
}

func stakes(ps []*models.Participant) []ledger.Stake {
	out := make([]ledger.Stake, 0, len(ps))
	for _, p := range ps {
		out = append(out, ledger.Stake{UserID: p.UserID, PayerID: p.PaidBy, Side: p.TeamSide})
	}
	return out
}

func findParticipant(ps []*models.Participant, userID uuid.UUID) *models.Participant {
	for _, p := range ps {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func countSide(ps []*models.Participant, side string) int {
	n := 0
	for _, p := range ps {
		if p.TeamSide == side {
			n++
		}
	}
	return n
}
