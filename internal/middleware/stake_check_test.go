package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// injectPrincipal simulates what JWTAuth would do upstream.
func injectPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithPrincipal(r.Context(), &Principal{UserID: uuid.New(), Role: models.RolePlayer})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var (
	minStake = decimal.RequireFromString("0.50")
	maxStake = decimal.RequireFromString("100")
)

func stakeRequest(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StakeFromCtx(r.Context()).String()
		got, err := io.ReadAll(r.Body)
		if err != nil || string(got) != body {
			t.Errorf("body not restored: %q, %v", got, err)
		}
		w.Write([]byte(seen))
	})
	handler := injectPrincipal(StakeCheck(minStake, maxStake)(next))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// 1. Entry fee within limits -> 200 OK
// ---------------------------------------------------------------------------

func TestStakeCheck_WithinLimits(t *testing.T) {
	rec := stakeRequest(t, `{"team_size":1,"entry_fee":"12.50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "12.5" {
		t.Errorf("parsed stake: got %q", rec.Body.String())
	}

	// Numeric JSON is accepted too.
	if rec := stakeRequest(t, `{"entry_fee":100}`); rec.Code != http.StatusOK {
		t.Errorf("upper bound: expected 200, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// 2. Entry fee outside limits -> 422
// ---------------------------------------------------------------------------

func TestStakeCheck_OutsideLimits(t *testing.T) {
	rec := stakeRequest(t, `{"entry_fee":"0.25"}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "below the minimum") {
		t.Errorf("below min: %d %s", rec.Code, rec.Body.String())
	}
	rec = stakeRequest(t, `{"entry_fee":"100.01"}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "exceeds the maximum") {
		t.Errorf("above max: %d %s", rec.Code, rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// 3. Malformed requests -> 400 / 401
// ---------------------------------------------------------------------------

func TestStakeCheck_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"entry_fee":"-3"}`} {
		if rec := stakeRequest(t, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"entry_fee":"5"}`))
	rec := httptest.NewRecorder()
	StakeCheck(minStake, maxStake)(okHandler).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no principal: expected 401, got %d", rec.Code)
	}
}
