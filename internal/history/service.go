package history

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

const (
	defaultLimit = 25
	maxLimit     = 100
)

var ErrUnknownStatus = errors.New("unknown match status")

var knownStatuses = map[string]bool{
	models.MatchStatusOpen:          true,
	models.MatchStatusFull:          true,
	models.MatchStatusReadyCheck:    true,
	models.MatchStatusInProgress:    true,
	models.MatchStatusResultPending: true,
	models.MatchStatusCompleted:     true,
	models.MatchStatusDisputed:      true,
	models.MatchStatusAdminResolved: true,
	models.MatchStatusCanceled:      true,
	models.MatchStatusExpired:       true,
}

type Service interface {
	ListMyMatches(ctx context.Context, userID uuid.UUID, status string, limit int) ([]*Entry, error)
}

type EntryLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, status string, limit int) ([]*Entry, error)
}

type service struct {
	repo EntryLister
}

func NewService(repo EntryLister) *service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) ListMyMatches(ctx context.Context, userID uuid.UUID, status string, limit int) ([]*Entry, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !knownStatuses[status] {
		return nil, ErrUnknownStatus
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.repo.ListByUser(ctx, userID, status, min(limit, maxLimit))
}
