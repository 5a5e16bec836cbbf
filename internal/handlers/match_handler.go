package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/middleware"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/validation"
)

const maxBodyBytes = 64 << 10

// MatchService is the lifecycle surface of services.Machine.
type MatchService interface {
	CreateMatch(ctx context.Context, p services.CreateMatchParams) (*models.Match, error)
	JoinMatch(ctx context.Context, p services.JoinMatchParams) (*services.JoinResult, error)
	CancelMatch(ctx context.Context, matchID, userID uuid.UUID) (*models.Match, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (*services.MatchView, error)
	ListEvents(ctx context.Context, matchID uuid.UUID, afterID int64, limit int) ([]*models.MatchEvent, error)
}

type ReadyChecker interface {
	SetReady(ctx context.Context, matchID, userID uuid.UUID) (*services.ReadyResult, error)
}

type ResultDeclarer interface {
	DeclareResult(ctx context.Context, p services.DeclareResultParams) (*services.DeclareOutcome, error)
}

// BodyValidator checks raw request bodies against a named schema.
type BodyValidator interface {
	Validate(name string, body []byte) error
}

// MatchHandler serves /v1/matches endpoints. Every route sits behind JWTAuth.
type MatchHandler struct {
	Matches   MatchService
	Ready     ReadyChecker
	Results   ResultDeclarer
	Validator BodyValidator
	Logger    *slog.Logger
}

// --- POST /v1/matches ---

type createMatchRequest struct {
	TeamSize  int             `json:"team_size"`
	EntryFee  decimal.Decimal `json:"entry_fee"`
	FirstTo   int             `json:"first_to"`
	ExpiresAt *time.Time      `json:"expires_at"`
	Teammates []uuid.UUID     `json:"teammates"`
}

// CreateMatch handles POST /v1/matches.
// Auth -> StakeCheck (via middleware) -> Validate -> CreateMatch -> 201.
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req createMatchRequest
	if !h.decode(w, r, validation.CreateMatch, &req) {
		return
	}

	p := services.CreateMatchParams{
		CreatorID: caller,
		TeamSize:  req.TeamSize,
		EntryFee:  req.EntryFee,
		FirstTo:   req.FirstTo,
		Teammates: req.Teammates,
	}
	if p.FirstTo == 0 {
		p.FirstTo = 1
	}
	if req.ExpiresAt != nil {
		p.ExpiresAt = *req.ExpiresAt
	}

	match, err := h.Matches.CreateMatch(r.Context(), p)
	if err != nil {
		h.fail(w, "create match", err)
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

// --- GET /v1/matches/{id} ---

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	view, err := h.Matches.GetMatch(r.Context(), matchID)
	if err != nil {
		h.fail(w, "get match", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- POST /v1/matches/{id}/join ---

type joinMatchRequest struct {
	Side      string      `json:"side"`
	Teammates []uuid.UUID `json:"teammates"`
}

func (h *MatchHandler) JoinMatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	var req joinMatchRequest
	if !h.decode(w, r, validation.JoinMatch, &req) {
		return
	}

	res, err := h.Matches.JoinMatch(r.Context(), services.JoinMatchParams{
		MatchID:   matchID,
		UserID:    caller,
		Side:      req.Side,
		Teammates: req.Teammates,
	})
	if err != nil {
		h.fail(w, "join match", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /v1/matches/{id}/ready ---

func (h *MatchHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.Ready.SetReady(r.Context(), matchID, caller)
	if err != nil {
		h.fail(w, "set ready", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /v1/matches/{id}/result ---

type declareResultRequest struct {
	Result string `json:"result"`
	Side   string `json:"side"`
}

func (h *MatchHandler) DeclareResult(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	var req declareResultRequest
	if !h.decode(w, r, validation.DeclareResult, &req) {
		return
	}

	out, err := h.Results.DeclareResult(r.Context(), services.DeclareResultParams{
		MatchID: matchID,
		UserID:  caller,
		Side:    req.Side,
		Choice:  req.Result,
	})
	if err != nil {
		h.fail(w, "declare result", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- POST /v1/matches/{id}/cancel ---

func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	match, err := h.Matches.CancelMatch(r.Context(), matchID, caller)
	if err != nil {
		h.fail(w, "cancel match", err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// --- GET /v1/matches/{id}/events?after=N&limit=M ---

func (h *MatchHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var after int64
	if s := q.Get("after"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid after cursor"}`, http.StatusBadRequest)
			return
		}
		after = n
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	events, err := h.Matches.ListEvents(r.Context(), matchID, after, limit)
	if err != nil {
		h.fail(w, "list events", err)
		return
	}
	if events == nil {
		events = []*models.MatchEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- helpers ---

func (h *MatchHandler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return p.UserID, true
}

// decode validates the body against schema and unmarshals it into dst.
func (h *MatchHandler) decode(w http.ResponseWriter, r *http.Request, schema string, dst interface{}) bool {
	return decodeBody(w, r, h.Validator, schema, dst)
}

func (h *MatchHandler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := errorStatus(err); status >= http.StatusInternalServerError {
		h.Logger.Error(op, "error", err)
	}
	writeError(w, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v BodyValidator, schema string, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := v.Validate(schema, body); err != nil {
		writeError(w, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func matchIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid match id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
