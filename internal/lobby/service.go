package lobby

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

var ErrInvalidFilter = errors.New("invalid lobby filter")

// Filter narrows the lobby. Zero values mean "any".
type Filter struct {
	TeamSize int
	MaxFee   *decimal.Decimal
	Limit    int
}

type Service interface {
	ListOpenMatches(ctx context.Context, f Filter) ([]*OpenMatch, error)
}

type OpenMatchLister interface {
	ListOpen(ctx context.Context, f Filter) ([]*OpenMatch, error)
}

type service struct {
	repo OpenMatchLister
}

func NewService(repo OpenMatchLister) *service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) ListOpenMatches(ctx context.Context, f Filter) ([]*OpenMatch, error) {
	if f.TeamSize < 0 || (f.MaxFee != nil && !f.MaxFee.IsPositive()) || f.Limit < 0 {
		return nil, ErrInvalidFilter
	}
	if f.Limit == 0 {
		f.Limit = defaultLimit
	}
	f.Limit = min(f.Limit, maxLimit)

	list, err := s.repo.ListOpen(ctx, f)
	if err != nil {
		return nil, err
	}
	// Full lobbies are hidden even if the status flip has not landed yet.
	out := list[:0]
	for _, m := range list {
		if m.SeatsTaken < 2*m.TeamSize {
			out = append(out, m)
		}
	}
	return out, nil
}
