package lobby

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type OpenMatchResponse struct {
	ID          string          `json:"id"`
	CreatorID   string          `json:"creator_id"`
	CreatorName string          `json:"creator_name"`
	TeamSize    int             `json:"team_size"`
	EntryFee    decimal.Decimal `json:"entry_fee"`
	FirstTo     int             `json:"first_to"`
	SeatsTaken  int             `json:"seats_taken"`
	SeatsLeft   int             `json:"seats_left"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// ListOpenMatches serves GET /api/v1/lobby?team_size=N&max_fee=X&limit=M (public).
func (h *Handler) ListOpenMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	var f Filter
	var err error
	if s := q.Get("team_size"); s != "" {
		if f.TeamSize, err = strconv.Atoi(s); err != nil {
			http.Error(w, "invalid team_size", http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("max_fee"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			http.Error(w, "invalid max_fee", http.StatusBadRequest)
			return
		}
		f.MaxFee = &d
	}
	if s := q.Get("limit"); s != "" {
		if f.Limit, err = strconv.Atoi(s); err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	list, err := h.svc.ListOpenMatches(r.Context(), f)
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("list open matches failed", "error", err)
		http.Error(w, "list matches failed", http.StatusInternalServerError)
		return
	}
	resp := make([]OpenMatchResponse, 0, len(list))
	for _, m := range list {
		resp = append(resp, toResponse(m))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func toResponse(m *OpenMatch) OpenMatchResponse {
	return OpenMatchResponse{
		ID:          m.ID.String(),
		CreatorID:   m.CreatorID.String(),
		CreatorName: m.CreatorName,
		TeamSize:    m.TeamSize,
		EntryFee:    m.EntryFee,
		FirstTo:     m.FirstTo,
		SeatsTaken:  m.SeatsTaken,
		SeatsLeft:   2*m.TeamSize - m.SeatsTaken,
		ExpiresAt:   m.ExpiresAt,
	}
}
