package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Match statuses.
const (
	MatchStatusOpen          = "open"
	MatchStatusFull          = "full"
	MatchStatusReadyCheck    = "ready_check"
	MatchStatusInProgress    = "in_progress"
	MatchStatusResultPending = "result_pending"
	MatchStatusCompleted     = "completed"
	MatchStatusDisputed      = "disputed"
	MatchStatusAdminResolved = "admin_resolved"
	MatchStatusCanceled      = "canceled"
	MatchStatusExpired       = "expired"
)

// Team sides.
const (
	SideA = "A"
	SideB = "B"
)

// OtherSide returns the opposing side.
func OtherSide(side string) string {
	if side == SideA {
		return SideB
	}
	return SideA
}

type Match struct {
	ID         uuid.UUID       `json:"id"`
	CreatorID  uuid.UUID       `json:"creator_id"`
	TeamSize   int             `json:"team_size"`
	EntryFee   decimal.Decimal `json:"entry_fee"`
	FirstTo    int             `json:"first_to"`
	Status     string          `json:"status"`
	ExpiresAt  time.Time       `json:"expires_at"`
	FilledAt   *time.Time      `json:"filled_at,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Capacity is the total number of participant slots across both sides.
func (m *Match) Capacity() int { return 2 * m.TeamSize }

// IsTerminal reports whether no further transition can leave the current status.
func (m *Match) IsTerminal() bool {
	switch m.Status {
	case MatchStatusCompleted, MatchStatusAdminResolved, MatchStatusCanceled, MatchStatusExpired:
		return true
	}
	return false
}

// StaleCriteria selects matches the reclaimer may expire.
type StaleCriteria struct {
	Now           time.Time
	OpenBefore    time.Time // open matches created before this
	FilledBefore  time.Time // full/ready_check matches filled before this
	StartedBefore time.Time // in_progress/result_pending matches started before this
}

// Matches reports whether m is stale under c.
func (c StaleCriteria) Matches(m *Match) bool {
	switch m.Status {
	case MatchStatusOpen:
		return m.CreatedAt.Before(c.OpenBefore) || m.ExpiresAt.Before(c.Now)
	case MatchStatusFull, MatchStatusReadyCheck:
		if m.ExpiresAt.Before(c.Now) {
			return true
		}
		return m.FilledAt != nil && m.FilledAt.Before(c.FilledBefore)
	case MatchStatusInProgress, MatchStatusResultPending:
		return m.StartedAt != nil && m.StartedAt.Before(c.StartedBefore)
	}
	return false
}
