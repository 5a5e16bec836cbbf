package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const (
	defaultTxLimit = 50
	maxTxLimit     = 200
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
}

type WalletReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

type TransactionLister interface {
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)
}

type Handler struct {
	authSvc TokenValidator
	usersR  UserStore
	walletR WalletReader
	txR     TransactionLister
	log     *slog.Logger
}

func NewHandler(authSvc TokenValidator, usersR UserStore, walletR WalletReader, txR TransactionLister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		authSvc: authSvc,
		usersR:  usersR,
		walletR: walletR,
		txR:     txR,
		log:     log,
	}
}

func (h *Handler) userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return uuid.Nil, fmt.Errorf("missing authorization")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return uuid.Nil, fmt.Errorf("bad authorization format")
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return uuid.Nil, fmt.Errorf("empty token")
	}
	id, _, err := h.authSvc.ValidateToken(r.Context(), token)
	return id, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, err := h.usersR.GetByID(r.Context(), userID)
	if err != nil {
		h.log.Error("get user failed", "error", err)
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	resp := map[string]any{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"created_at":   u.CreatedAt,
	}
	if wal, err := h.walletR.GetByUserID(r.Context(), userID); err == nil {
		resp["balance"] = wal.Balance
		resp["locked_balance"] = wal.LockedBalance
	}
	writeJSON(w, http.StatusOK, resp)
}

// PATCH /api/v1/account/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		DisplayName *string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.DisplayName == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	name := strings.TrimSpace(*body.DisplayName)
	if name == "" || len(name) > 64 {
		http.Error(w, "display_name must be 1-64 characters", http.StatusBadRequest)
		return
	}
	if err := h.usersR.UpdateDisplayName(r.Context(), userID, name); err != nil {
		h.log.Error("update display name failed", "error", err)
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "display_name": name})
}

// GET /api/v1/wallet
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	wal, err := h.walletR.GetByUserID(r.Context(), userID)
	if err != nil {
		h.log.Error("get wallet failed", "user_id", userID, "error", err)
		http.Error(w, "wallet not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        wal.UserID,
		"balance":        wal.Balance,
		"locked_balance": wal.LockedBalance,
		"holdings":       wal.Holdings(),
		"updated_at":     wal.UpdatedAt,
	})
}

// GET /api/v1/transactions?limit=N
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := defaultTxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTxLimit)
	}
	list, err := h.txR.ListByUserID(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}
