package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/middleware"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/validation"
)

type DisputeSettler interface {
	Resolve(ctx context.Context, p services.ResolveParams) (*models.MatchResult, error)
}

type Reclaimer interface {
	ReclaimStale(ctx context.Context, cutoff time.Duration) (*services.ReclaimReport, error)
}

// AdminHandler serves /v1/admin endpoints behind JWTAuth and RequireAdmin.
type AdminHandler struct {
	Disputes    DisputeSettler
	Reclaimer   Reclaimer
	StaleCutoff time.Duration
	Validator   BodyValidator
	Logger      *slog.Logger
}

type resolveRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// ResolveDispute handles POST /v1/admin/matches/{id}/resolve.
func (h *AdminHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	matchID, ok := matchIDFromPath(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeBody(w, r, h.Validator, validation.ResolveDispute, &req) {
		return
	}

	res, err := h.Disputes.Resolve(r.Context(), services.ResolveParams{
		MatchID: matchID,
		AdminID: p.UserID,
		Action:  req.Action,
		Notes:   req.Notes,
	})
	if err != nil {
		if status, _ := errorStatus(err); status >= http.StatusInternalServerError {
			h.Logger.Error("resolve dispute", "match_id", matchID, "error", err)
		}
		writeError(w, err)
		return
	}
	h.Logger.Info("dispute resolved", "match_id", matchID, "admin_id", p.UserID, "action", req.Action)
	writeJSON(w, http.StatusOK, res)
}

type reclaimResponse struct {
	*services.ReclaimReport
	Error string `json:"error,omitempty"`
}

// Reclaim handles POST /v1/admin/reclaim: one synchronous reclaimer pass.
func (h *AdminHandler) Reclaim(w http.ResponseWriter, r *http.Request) {
	cutoff := h.StaleCutoff
	if cutoff <= 0 {
		cutoff = services.DefaultStaleCutoff
	}
	report, err := h.Reclaimer.ReclaimStale(r.Context(), cutoff)
	if report == nil {
		report = &services.ReclaimReport{}
	}
	if err != nil {
		h.Logger.Error("manual reclaim pass had failures", "error", err, "failed", report.Failed)
		writeJSON(w, http.StatusInternalServerError, reclaimResponse{ReclaimReport: report, Error: "reclaim_failed"})
		return
	}
	writeJSON(w, http.StatusOK, reclaimResponse{ReclaimReport: report})
}
