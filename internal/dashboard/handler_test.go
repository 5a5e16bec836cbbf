package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubAuth struct{ tokens map[string]uuid.UUID }

func (s stubAuth) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	id, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, "", errors.New("invalid token")
	}
	return id, models.RolePlayer, nil
}

type stubUsers struct{ users map[uuid.UUID]*models.User }

func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (s *stubUsers) UpdateDisplayName(_ context.Context, id uuid.UUID, name string) error {
	s.users[id].DisplayName = name
	return nil
}

type stubWallets struct{ w *models.Wallet }

func (s stubWallets) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if s.w == nil || s.w.UserID != userID {
		return nil, errors.New("no rows")
	}
	return s.w, nil
}

type stubTxs struct {
	limit int
	list  []*models.Transaction
}

func (s *stubTxs) ListByUserID(_ context.Context, _ uuid.UUID, limit int) ([]*models.Transaction, error) {
	s.limit = limit
	return s.list, nil
}

func newTestHandler() (*Handler, uuid.UUID, *stubUsers, *stubTxs) {
	id := uuid.New()
	users := &stubUsers{users: map[uuid.UUID]*models.User{id: {ID: id, Email: "p@example.com", DisplayName: "p", Role: models.RolePlayer}}}
	wallets := stubWallets{w: &models.Wallet{UserID: id, Balance: decimal.RequireFromString("40"), LockedBalance: decimal.RequireFromString("10")}}
	txs := &stubTxs{list: []*models.Transaction{{ID: uuid.New(), UserID: id, Kind: models.TxKindLock}}}
	h := NewHandler(stubAuth{tokens: map[string]uuid.UUID{"good": id}}, users, wallets, txs, nil)
	return h, id, users, txs
}

func get(h http.HandlerFunc, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGetWallet(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := get(h.GetWallet, "/api/v1/wallet", "good")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Balance  decimal.Decimal `json:"balance"`
		Locked   decimal.Decimal `json:"locked_balance"`
		Holdings decimal.Decimal `json:"holdings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Holdings.Equal(decimal.NewFromInt(50)) || !body.Locked.Equal(decimal.NewFromInt(10)) {
		t.Errorf("wallet: %+v", body)
	}

	if rec := get(h.GetWallet, "/api/v1/wallet", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := get(h.GetWallet, "/api/v1/wallet", "forged"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
}

func TestListTransactions_Limit(t *testing.T) {
	h, _, _, txs := newTestHandler()

	if rec := get(h.ListTransactions, "/api/v1/transactions", "good"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if txs.limit != defaultTxLimit {
		t.Errorf("default limit: got %d", txs.limit)
	}
	get(h.ListTransactions, "/api/v1/transactions?limit=5000", "good")
	if txs.limit != maxTxLimit {
		t.Errorf("capped limit: got %d", txs.limit)
	}
	if rec := get(h.ListTransactions, "/api/v1/transactions?limit=0", "good"); rec.Code != http.StatusBadRequest {
		t.Errorf("zero limit: expected 400, got %d", rec.Code)
	}
}

func TestGetMeAndSettings(t *testing.T) {
	h, id, users, _ := newTestHandler()

	rec := get(h.GetMe, "/api/v1/account/me", "good")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"locked_balance":"10"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/account/settings", strings.NewReader(`{"display_name":"  Ace  "}`))
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	h.UpdateSettings(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings: %d %s", rec.Code, rec.Body.String())
	}
	if users.users[id].DisplayName != "Ace" {
		t.Errorf("display name: %q", users.users[id].DisplayName)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/account/settings", strings.NewReader(`{"display_name":" "}`))
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	h.UpdateSettings(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank name: expected 400, got %d", rec.Code)
	}
}
