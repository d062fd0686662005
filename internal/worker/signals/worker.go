// Package signals rebuilds confidence scores for users whose trust signals changed
// and applies the resulting enforcement tier.
package signals

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/worker/core"
	"go.uber.org/zap"
)

// ProfileLister pages through users whose trust profile changed.
type ProfileLister interface {
	ListTrustProfilesUpdatedSince(ctx context.Context, since time.Time, afterUserID string, limit int) ([]string, error)
}

// Enforcer scores a user and applies the matching tier.
type Enforcer interface {
	ApplyFederatedEnforcement(ctx context.Context, userID string) (enum.Tier, error)
}

// Options tune a worker run.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Interval   time.Duration
}

// Summary counts the outcome of one run.
type Summary struct {
	Processed int
	Enforced  int
	Failed    int
}

// Worker runs the signal rebuild on an interval.
type Worker struct {
	profiles ProfileLister
	enforcer Enforcer
	reporter *core.StatusReporter
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a signals worker from the application bundle.
func New(app *setup.App, logger *zap.Logger) *Worker {
	cfg := app.Config.Worker
	return NewWorker(
		app.DB.Model().Signal(),
		app.Engine,
		core.NewStatusReporter(app.StatusClient, "signals", logger),
		Options{
			BatchSize:  cfg.BatchSizes.SignalUsers,
			BatchDelay: time.Duration(cfg.BatchDelay) * time.Millisecond,
			Interval:   time.Duration(cfg.Interval.Signals) * time.Minute,
		},
		logger,
	)
}

// NewWorker creates a signals worker over explicit collaborators.
func NewWorker(
	profiles ProfileLister, enforcer Enforcer, reporter *core.StatusReporter, opts Options, logger *zap.Logger,
) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Worker{
		profiles: profiles,
		enforcer: enforcer,
		reporter: reporter,
		opts:     opts,
		logger:   logger.Named("signals_worker"),
		now:      time.Now,
	}
}

// Start runs until ctx is cancelled. Each run covers profiles changed since the
// previous run started; the first run looks back one interval.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Signals Worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	since := w.now().Add(-w.opts.Interval)
	for {
		started := w.now()
		w.reporter.SetHealthy(true)

		summary, err := w.RunOnce(ctx, since)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Context cancelled, stopping signals worker")
				return
			}
			w.logger.Error("Signal rebuild failed", zap.Error(err))
			w.reporter.SetHealthy(false)
			if !core.Sleep(ctx, time.Minute) {
				return
			}
			continue
		}

		since = started
		w.logger.Info("Signal rebuild completed",
			zap.Int("processed", summary.Processed),
			zap.Int("enforced", summary.Enforced),
			zap.Int("failed", summary.Failed))

		w.reporter.UpdateStatus("Waiting for next run", 100)
		if !core.Sleep(ctx, w.opts.Interval) {
			w.logger.Info("Context cancelled, stopping signals worker")
			return
		}
	}
}

// RunOnce rescores every user whose profile changed since the given time.
// Batches run one after another; users within a batch are scored concurrently.
// A failure for one user is logged and counted but does not stop the run.
func (w *Worker) RunOnce(ctx context.Context, since time.Time) (Summary, error) {
	var (
		summary  Summary
		enforced atomic.Int64
		after    string
	)

	for {
		w.reporter.UpdateStatus("Fetching changed profiles", 0)

		userIDs, err := w.profiles.ListTrustProfilesUpdatedSince(ctx, since, after, w.opts.BatchSize)
		if err != nil {
			return summary, fmt.Errorf("failed to list changed profiles: %w", err)
		}
		if len(userIDs) == 0 {
			break
		}

		w.reporter.UpdateStatus("Rescoring users", 50)
		summary.Failed += core.RunBatch(ctx, userIDs, len(userIDs), func(ctx context.Context, userID string) error {
			tier, err := w.enforcer.ApplyFederatedEnforcement(ctx, userID)
			if err != nil {
				w.logger.Error("Failed to apply enforcement",
					zap.String("userID", userID),
					zap.Error(err))
				return err
			}
			if tier != enum.TierNone {
				enforced.Add(1)
			}
			return nil
		})
		summary.Processed += len(userIDs)

		after = userIDs[len(userIDs)-1]
		if len(userIDs) < w.opts.BatchSize {
			break
		}

		if !core.Sleep(ctx, w.opts.BatchDelay) {
			summary.Enforced = int(enforced.Load())
			return summary, ctx.Err()
		}
	}

	summary.Enforced = int(enforced.Load())
	return summary, nil
}
