package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
)

type ReclaimStaleArgs struct {
	CutoffMinutes int `json:"cutoff_minutes"`
}

func (ReclaimStaleArgs) Kind() string { return "reclaim_stale" }

// Reclaimer defines the contract the worker needs; implemented by services.StaleMatchReclaimer.
type Reclaimer interface {
	ReclaimStale(ctx context.Context, cutoff time.Duration) (*services.ReclaimReport, error)
}

type ReclaimStaleWorker struct {
	river.WorkerDefaults[ReclaimStaleArgs]
	reclaimer Reclaimer
	logger    *slog.Logger
}

func NewReclaimStaleWorker(r Reclaimer, logger *slog.Logger) *ReclaimStaleWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReclaimStaleWorker{reclaimer: r, logger: logger}
}

func (w *ReclaimStaleWorker) Timeout(*river.Job[ReclaimStaleArgs]) time.Duration {
	return 2 * time.Minute
}

func (w *ReclaimStaleWorker) Work(ctx context.Context, job *river.Job[ReclaimStaleArgs]) error {
	cutoff := time.Duration(job.Args.CutoffMinutes) * time.Minute
	report, err := w.reclaimer.ReclaimStale(ctx, cutoff)
	if err != nil {
		// The next periodic run picks up whatever is still stale.
		return fmt.Errorf("reclaim pass: %w", err)
	}
	if report.Expired+report.Resettled+report.WalletsRepaired > 0 {
		w.logger.Info("reclaim job finished",
			"expired", report.Expired,
			"resettled", report.Resettled,
			"wallets_repaired", report.WalletsRepaired,
		)
	}
	return nil
}

// PeriodicReclaim schedules one reclaim_stale job per interval. Failed runs are
// not retried by River; the next tick replaces them.
func PeriodicReclaim(interval, cutoff time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return ReclaimStaleArgs{CutoffMinutes: int(cutoff / time.Minute)}, &river.InsertOpts{
				MaxAttempts: 1,
				UniqueOpts:  river.UniqueOpts{ByPeriod: interval},
			}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
