// Package expiry runs the periodic subscription sweep: ACTIVE subscriptions
// whose validity window has closed are marked EXPIRED so quota consumption
// stops matching them.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/mentora/backend/internal/subscription"
)

type SweepArgs struct{}

func (SweepArgs) Kind() string { return "subscription_expiry_sweep" }

type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	subs   subscription.Service
	logger *slog.Logger
}

func NewSweepWorker(subs subscription.Service, logger *slog.Logger) *SweepWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepWorker{subs: subs, logger: logger}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	expired, err := w.subs.ExpireDue(ctx, time.Now())
	if err != nil {
		return err
	}
	if expired > 0 {
		w.logger.Info("subscription sweep finished", "expired", expired)
	}
	return nil
}

// PeriodicJob returns the sweep schedule for the River client, running at
// the given interval and once at startup.
func PeriodicJob(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
