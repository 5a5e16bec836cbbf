package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryResponse struct {
	MatchID           string          `json:"match_id"`
	MatchStatus       string          `json:"match_status"`
	TeamSize          int             `json:"team_size"`
	EntryFee          decimal.Decimal `json:"entry_fee"`
	TeamSide          string          `json:"team_side"`
	ParticipantStatus string          `json:"participant_status"`
	CoveredBy         *string         `json:"covered_by,omitempty"`
	Won               *bool           `json:"won,omitempty"`
	JoinedAt          time.Time       `json:"joined_at"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
}

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type Handler struct {
	svc     Service
	authSvc TokenValidator
	log     *slog.Logger
}

func NewHandler(svc Service, authSvc TokenValidator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, authSvc: authSvc, log: log}
}

// ListMyMatches serves GET /api/v1/matches/mine?status=S&limit=N.
func (h *Handler) ListMyMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.userIDFromRequest(r)
	if err != nil || userID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.ListMyMatches(r.Context(), userID, r.URL.Query().Get("status"), limit)
	if err != nil {
		if errors.Is(err, ErrUnknownStatus) {
			http.Error(w, "unknown status filter", http.StatusBadRequest)
			return
		}
		h.log.Error("list match history failed", "error", err)
		http.Error(w, "list matches failed", http.StatusInternalServerError)
		return
	}
	resp := make([]EntryResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, entryToResponse(e))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return uuid.Nil, nil
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return uuid.Nil, nil
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return uuid.Nil, nil
	}
	id, _, err := h.authSvc.ValidateToken(r.Context(), token)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func entryToResponse(e *Entry) EntryResponse {
	out := EntryResponse{
		MatchID:           e.MatchID.String(),
		MatchStatus:       e.MatchStatus,
		TeamSize:          e.TeamSize,
		EntryFee:          e.EntryFee,
		TeamSide:          e.TeamSide,
		ParticipantStatus: e.ParticipantStatus,
		JoinedAt:          e.JoinedAt,
		FinishedAt:        e.FinishedAt,
	}
	if e.CoveredBy != nil {
		s := e.CoveredBy.String()
		out.CoveredBy = &s
	}
	if e.WinnerSide != nil {
		won := *e.WinnerSide == e.TeamSide
		out.Won = &won
	}
	return out
}
