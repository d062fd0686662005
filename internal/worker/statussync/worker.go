// Package statussync keeps restrictions aligned with each account's status.
package statussync

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/enforcement"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/worker/core"
	"go.uber.org/zap"
)

// AccountLister pages through account states ordered by user ID.
type AccountLister interface {
	ListAccountStates(ctx context.Context, afterUserID string, limit int) ([]*types.AccountEnforcementState, error)
}

// Syncer aligns one user's restrictions with their account status.
type Syncer interface {
	SyncAccountStatus(ctx context.Context, userID string) (*enforcement.SyncResult, error)
}

// Options tune a worker run.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Interval   time.Duration
}

// Summary counts the outcome of one pass.
type Summary struct {
	Checked        int
	Changed        int
	LiftCandidates []string
	Failed         int
}

// Worker runs the status sync on an interval.
type Worker struct {
	accounts AccountLister
	syncer   Syncer
	reporter *core.StatusReporter
	opts     Options
	logger   *zap.Logger
}

// New creates a status sync worker from the application bundle.
func New(app *setup.App, logger *zap.Logger) *Worker {
	cfg := app.Config.Worker
	return NewWorker(
		app.DB.Model().AccountState(),
		app.Engine,
		core.NewStatusReporter(app.StatusClient, "statussync", logger),
		Options{
			BatchSize:  cfg.BatchSizes.StatusAccounts,
			BatchDelay: time.Duration(cfg.BatchDelay) * time.Millisecond,
			Interval:   time.Duration(cfg.Interval.StatusSync) * time.Minute,
		},
		logger,
	)
}

// NewWorker creates a status sync worker over explicit collaborators.
func NewWorker(
	accounts AccountLister, syncer Syncer, reporter *core.StatusReporter, opts Options, logger *zap.Logger,
) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Worker{
		accounts: accounts,
		syncer:   syncer,
		reporter: reporter,
		opts:     opts,
		logger:   logger.Named("statussync_worker"),
	}
}

// Start runs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Status Sync Worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	for {
		w.reporter.SetHealthy(true)

		summary, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Context cancelled, stopping status sync worker")
				return
			}
			w.logger.Error("Status sync failed", zap.Error(err))
			w.reporter.SetHealthy(false)
			if !core.Sleep(ctx, time.Minute) {
				return
			}
			continue
		}

		w.logger.Info("Status sync completed",
			zap.Int("checked", summary.Checked),
			zap.Int("changed", summary.Changed),
			zap.Int("liftCandidates", len(summary.LiftCandidates)),
			zap.Int("failed", summary.Failed))

		w.reporter.UpdateStatus("Waiting for next pass", 100)
		if !core.Sleep(ctx, w.opts.Interval) {
			w.logger.Info("Context cancelled, stopping status sync worker")
			return
		}
	}
}

// RunOnce syncs every known account. Lift candidates are only reported;
// lifting stays a reviewer decision.
func (w *Worker) RunOnce(ctx context.Context) (Summary, error) {
	var (
		summary Summary
		changed atomic.Int64
		mu      sync.Mutex
		after   string
	)

	for {
		w.reporter.UpdateStatus("Fetching accounts", 0)

		states, err := w.accounts.ListAccountStates(ctx, after, w.opts.BatchSize)
		if err != nil {
			return summary, fmt.Errorf("failed to list account states: %w", err)
		}
		if len(states) == 0 {
			break
		}

		w.reporter.UpdateStatus("Syncing restrictions", 50)
		summary.Failed += core.RunBatch(ctx, states, len(states), func(ctx context.Context, state *types.AccountEnforcementState) error {
			result, err := w.syncer.SyncAccountStatus(ctx, state.UserID)
			if err != nil {
				w.logger.Error("Failed to sync account status",
					zap.String("userID", state.UserID),
					zap.Error(err))
				return err
			}
			if result.Changed {
				changed.Add(1)
			}
			if result.LiftCandidate {
				w.logger.Info("Automatic restrictions eligible for lift review", zap.String("userID", state.UserID))
				mu.Lock()
				summary.LiftCandidates = append(summary.LiftCandidates, state.UserID)
				mu.Unlock()
			}
			return nil
		})
		summary.Checked += len(states)

		after = states[len(states)-1].UserID
		if len(states) < w.opts.BatchSize {
			break
		}

		if !core.Sleep(ctx, w.opts.BatchDelay) {
			summary.Changed = int(changed.Load())
			return summary, ctx.Err()
		}
	}

	summary.Changed = int(changed.Load())
	slices.Sort(summary.LiftCandidates)
	return summary, nil
}
