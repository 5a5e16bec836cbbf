package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
)

type stubReclaimer struct {
	cutoff time.Duration
	report *services.ReclaimReport
	err    error
}

func (s *stubReclaimer) ReclaimStale(_ context.Context, cutoff time.Duration) (*services.ReclaimReport, error) {
	s.cutoff = cutoff
	return s.report, s.err
}

func TestReclaimStaleWorker_PassesCutoff(t *testing.T) {
	r := &stubReclaimer{report: &services.ReclaimReport{Expired: 2}}
	w := NewReclaimStaleWorker(r, nil)

	job := &river.Job[ReclaimStaleArgs]{Args: ReclaimStaleArgs{CutoffMinutes: 35}}
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if r.cutoff != 35*time.Minute {
		t.Errorf("cutoff: got %s, want 35m", r.cutoff)
	}
}

func TestReclaimStaleWorker_SurfacesFailures(t *testing.T) {
	r := &stubReclaimer{report: &services.ReclaimReport{Failed: 1}, err: errors.New("expire match: deadlock detected")}
	w := NewReclaimStaleWorker(r, nil)

	err := w.Work(context.Background(), &river.Job[ReclaimStaleArgs]{})
	if err == nil || !errors.Is(err, r.err) {
		t.Fatalf("expected wrapped reclaim error, got %v", err)
	}
}

func TestReclaimStaleArgs_Kind(t *testing.T) {
	if got := (ReclaimStaleArgs{}).Kind(); got != "reclaim_stale" {
		t.Errorf("kind: %q", got)
	}
}
