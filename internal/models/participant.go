package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant statuses.
const (
	ParticipantJoined   = "joined"
	ParticipantWon      = "won"
	ParticipantLost     = "lost"
	ParticipantRefunded = "refunded"
)

// Result choices.
const (
	ChoiceWin  = "WIN"
	ChoiceLoss = "LOSS"
)

// Participant is one user's seat in a match. PaidBy is the wallet that locked
// the seat's entry fee; it differs from UserID when a teammate covered it.
type Participant struct {
	ID           uuid.UUID `json:"id"`
	MatchID      uuid.UUID `json:"match_id"`
	UserID       uuid.UUID `json:"user_id"`
	TeamSide     string    `json:"team_side"`
	PaidBy       uuid.UUID `json:"paid_by"`
	Ready        bool      `json:"ready"`
	ResultChoice *string   `json:"result_choice,omitempty"`
	Status       string    `json:"status"`
	JoinedAt     time.Time `json:"joined_at"`
}
