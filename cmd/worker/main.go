package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/robalyx/warden/internal/worker/core"
	"github.com/robalyx/warden/internal/worker/rogue"
	"github.com/robalyx/warden/internal/worker/signals"
	"github.com/robalyx/warden/internal/worker/statussync"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// SignalsWorker rescores users whose trust signals changed.
	SignalsWorker = "signals"

	// RogueWorker sweeps active moderators for rogue behavior.
	RogueWorker = "rogue"

	// StatusSyncWorker aligns restrictions with account status.
	StatusSyncWorker = "statussync"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start a governance worker",
		Commands: []*cli.Command{
			{
				Name:  SignalsWorker,
				Usage: "Start the signal rebuild worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorker(ctx, SignalsWorker)
				},
			},
			{
				Name:  RogueWorker,
				Usage: "Start the rogue moderator sweep worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorker(ctx, RogueWorker)
				},
			},
			{
				Name:  StatusSyncWorker,
				Usage: "Start the account status sync worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorker(ctx, StatusSyncWorker)
				},
			},
			{
				Name:   "status",
				Usage:  "Show the last reported status of every worker",
				Action: showStatus,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runWorker starts a worker and restarts it after a panic until interrupted.
func runWorker(ctx context.Context, workerType string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, workerType)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	logger := app.LogManager.GetWorkerLogger(workerType + "_worker")

	var w interface{ Start(ctx context.Context) }
	switch workerType {
	case SignalsWorker:
		w = signals.New(app, logger)
	case RogueWorker:
		w = rogue.New(app, logger)
	case StatusSyncWorker:
		w = statussync.New(app, logger)
	default:
		return fmt.Errorf("invalid worker type: %s", workerType)
	}

	log.Printf("Started %s worker", workerType)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Worker execution failed",
						zap.String("worker_type", workerType),
						zap.Any("panic", r),
					)
				}
			}()

			logger.Info("Starting worker")
			w.Start(ctx)
		}()

		if ctx.Err() != nil {
			logger.Info("Context cancelled, stopping worker")
			log.Printf("%s worker has finished. Exiting.", workerType)
			return nil
		}

		logger.Warn("Worker stopped unexpectedly, restarting in 5 seconds",
			zap.String("worker_type", workerType))
		if !core.Sleep(ctx, 5*time.Second) {
			return nil
		}
	}
}

// showStatus prints the last reported status of every worker.
func showStatus(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	statuses, err := core.ListStatuses(ctx, app.StatusClient, app.Logger)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No workers have reported a status")
		return nil
	}

	now := time.Now()
	for _, s := range statuses {
		state := "healthy"
		switch {
		case s.IsStale(now):
			state = "stale"
		case !s.IsHealthy:
			state = "unhealthy"
		}

		fmt.Printf("%-12s %s  %-9s %3d%%  %s  (last seen %s ago)\n",
			s.WorkerType, s.WorkerID, state, s.Progress, s.CurrentTask,
			now.Sub(s.LastSeen).Round(time.Second))
	}

	return nil
}
