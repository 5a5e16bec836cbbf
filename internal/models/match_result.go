package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult statuses. Progression: pending -> confirmed | disputed -> resolved.
const (
	ResultStatusPending   = "pending"
	ResultStatusConfirmed = "confirmed"
	ResultStatusDisputed  = "disputed"
	ResultStatusResolved  = "resolved"
)

// Admin dispute actions.
const (
	ActionSideAWin   = "SIDE_A_WIN"
	ActionSideBWin   = "SIDE_B_WIN"
	ActionRefundBoth = "REFUND_BOTH"
)

type MatchResult struct {
	MatchID           uuid.UUID  `json:"match_id"`
	SideAChoice       *string    `json:"side_a_choice,omitempty"`
	SideBChoice       *string    `json:"side_b_choice,omitempty"`
	WinnerSide        *string    `json:"winner_side,omitempty"`
	WinnerUserID      *uuid.UUID `json:"winner_user_id,omitempty"`
	WinnerConfirmed   bool       `json:"winner_confirmed"`
	LoserConfirmed    bool       `json:"loser_confirmed"`
	Status            string     `json:"status"`
	DisputeReason     *string    `json:"dispute_reason,omitempty"`
	AdminAction       *string    `json:"admin_action,omitempty"`
	AdminNotes        *string    `json:"admin_notes,omitempty"`
	ResolvedBy        *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	SettlementRetries int        `json:"settlement_retries"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ChoiceFor returns the declared choice of side, or "".
func (r *MatchResult) ChoiceFor(side string) string {
	p := r.SideAChoice
	if side == SideB {
		p = r.SideBChoice
	}
	if p == nil {
		return ""
	}
	return *p
}

// SetChoice records side's declared choice.
func (r *MatchResult) SetChoice(side, choice string) {
	c := choice
	if side == SideB {
		r.SideBChoice = &c
		return
	}
	r.SideAChoice = &c
}

// IsFinal reports whether the result can no longer change.
func (r *MatchResult) IsFinal() bool {
	return r.Status == ResultStatusConfirmed || r.Status == ResultStatusResolved
}
