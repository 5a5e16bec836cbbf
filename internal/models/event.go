package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatchEventStatusChanged is the type of every outbox record written on a committed transition.
const MatchEventStatusChanged = "match.status_changed"

// MatchEvent is an outbox record. FromStatus is empty for the creation event.
type MatchEvent struct {
	ID          int64           `json:"id"`
	MatchID     uuid.UUID       `json:"match_id"`
	Type        string          `json:"type"`
	FromStatus  string          `json:"from_status"`
	ToStatus    string          `json:"to_status"`
	ActorID     *uuid.UUID      `json:"actor_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}
