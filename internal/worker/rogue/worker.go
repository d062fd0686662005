// Package rogue sweeps every recently active moderator through the rogue
// moderator analysis.
package rogue

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/rogue"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/worker/core"
	"go.uber.org/zap"
)

// ActorLister returns the moderators that acted since a point in time.
type ActorLister interface {
	ListActiveActors(ctx context.Context, since time.Time) ([]string, error)
}

// Analyzer runs the rogue moderator analysis for one moderator.
type Analyzer interface {
	AnalyzeModeratorBehavior(ctx context.Context, moderatorID string) (*types.RogueModeratorDetection, error)
}

// Options tune a worker run.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Interval   time.Duration
}

// Summary counts the outcome of one sweep.
type Summary struct {
	Analyzed  int
	Detected  int
	Suspended int
	Failed    int
}

// Worker runs the rogue sweep on an interval.
type Worker struct {
	actors   ActorLister
	analyzer Analyzer
	reporter *core.StatusReporter
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a rogue worker from the application bundle.
func New(app *setup.App, logger *zap.Logger) *Worker {
	cfg := app.Config.Worker
	return NewWorker(
		app.DB.Model().Audit(),
		app.Engine,
		core.NewStatusReporter(app.StatusClient, "rogue", logger),
		Options{
			BatchSize:  cfg.BatchSizes.RogueModerators,
			BatchDelay: time.Duration(cfg.BatchDelay) * time.Millisecond,
			Interval:   time.Duration(cfg.Interval.Rogue) * time.Minute,
		},
		logger,
	)
}

// NewWorker creates a rogue worker over explicit collaborators.
func NewWorker(
	actors ActorLister, analyzer Analyzer, reporter *core.StatusReporter, opts Options, logger *zap.Logger,
) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Worker{
		actors:   actors,
		analyzer: analyzer,
		reporter: reporter,
		opts:     opts,
		logger:   logger.Named("rogue_worker"),
		now:      time.Now,
	}
}

// WithClock replaces the worker's time source.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Start runs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Rogue Worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	for {
		w.reporter.SetHealthy(true)

		summary, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Context cancelled, stopping rogue worker")
				return
			}
			w.logger.Error("Rogue sweep failed", zap.Error(err))
			w.reporter.SetHealthy(false)
			if !core.Sleep(ctx, time.Minute) {
				return
			}
			continue
		}

		w.logger.Info("Rogue sweep completed",
			zap.Int("analyzed", summary.Analyzed),
			zap.Int("detected", summary.Detected),
			zap.Int("suspended", summary.Suspended),
			zap.Int("failed", summary.Failed))

		w.reporter.UpdateStatus("Waiting for next sweep", 100)
		if !core.Sleep(ctx, w.opts.Interval) {
			w.logger.Info("Context cancelled, stopping rogue worker")
			return
		}
	}
}

// RunOnce analyzes every moderator active inside the analysis window.
func (w *Worker) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	w.reporter.UpdateStatus("Fetching active moderators", 0)
	moderatorIDs, err := w.actors.ListActiveActors(ctx, w.now().Add(-rogue.AnalysisWindow))
	if err != nil {
		return summary, fmt.Errorf("failed to list active moderators: %w", err)
	}
	if len(moderatorIDs) == 0 {
		return summary, nil
	}

	var detected, suspended atomic.Int64
	for batch := range slices.Chunk(moderatorIDs, w.opts.BatchSize) {
		if summary.Analyzed > 0 && !core.Sleep(ctx, w.opts.BatchDelay) {
			return summary, ctx.Err()
		}

		w.reporter.UpdateStatus("Analyzing moderators", summary.Analyzed*100/len(moderatorIDs))
		summary.Failed += core.RunBatch(ctx, batch, len(batch), func(ctx context.Context, moderatorID string) error {
			detection, err := w.analyzer.AnalyzeModeratorBehavior(ctx, moderatorID)
			if err != nil {
				w.logger.Error("Failed to analyze moderator",
					zap.String("moderatorID", moderatorID),
					zap.Error(err))
				return err
			}
			if detection == nil {
				return nil
			}

			detected.Add(1)
			if detection.AutoSuspended {
				suspended.Add(1)
			}
			w.logger.Warn("Rogue moderator detected",
				zap.String("moderatorID", moderatorID),
				zap.Int("patterns", len(detection.Patterns)),
				zap.Float64("falsePositiveRate", detection.FalsePositiveRate),
				zap.Bool("autoSuspended", detection.AutoSuspended))
			return nil
		})
		summary.Analyzed += len(batch)
	}

	summary.Detected = int(detected.Load())
	summary.Suspended = int(suspended.Load())
	return summary, nil
}
