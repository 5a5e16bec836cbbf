package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

type stubLister struct {
	status string
	limit  int
	list   []*Entry
}

func (s *stubLister) ListByUser(_ context.Context, _ uuid.UUID, status string, limit int) ([]*Entry, error) {
	s.status, s.limit = status, limit
	return s.list, nil
}

type stubAuth struct{ id uuid.UUID }

func (s stubAuth) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	if token != "good" {
		return uuid.Nil, "", errors.New("invalid token")
	}
	return s.id, models.RolePlayer, nil
}

func TestListMyMatches_Filters(t *testing.T) {
	repo := &stubLister{}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.ListMyMatches(ctx, uuid.New(), " Completed ", 0); err != nil {
		t.Fatalf("ListMyMatches: %v", err)
	}
	if repo.status != models.MatchStatusCompleted || repo.limit != defaultLimit {
		t.Errorf("normalized filter: %q %d", repo.status, repo.limit)
	}
	if _, err := svc.ListMyMatches(ctx, uuid.New(), "", 1000); err != nil || repo.limit != maxLimit {
		t.Errorf("capped limit: %d, %v", repo.limit, err)
	}
	if _, err := svc.ListMyMatches(ctx, uuid.New(), "won", 10); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestHandler_ListMyMatches(t *testing.T) {
	user, payer := uuid.New(), uuid.New()
	winner := models.SideB
	repo := &stubLister{list: []*Entry{
		{MatchID: uuid.New(), MatchStatus: models.MatchStatusCompleted, TeamSide: models.SideA, CoveredBy: &payer, WinnerSide: &winner},
		{MatchID: uuid.New(), MatchStatus: models.MatchStatusOpen, TeamSide: models.SideB},
	}}
	h := NewHandler(NewService(repo), stubAuth{id: user}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/matches/mine", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ListMyMatches(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("entries: %d", len(resp))
	}
	if resp[0].Won == nil || *resp[0].Won || resp[0].CoveredBy == nil || *resp[0].CoveredBy != payer.String() {
		t.Errorf("settled entry: %+v", resp[0])
	}
	if resp[1].Won != nil {
		t.Errorf("open entry must not report an outcome: %+v", resp[1])
	}

	rec = httptest.NewRecorder()
	h.ListMyMatches(rec, httptest.NewRequest(http.MethodGet, "/api/v1/matches/mine", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", rec.Code)
	}
}
