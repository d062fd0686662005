package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/migrations"
	"github.com/robalyx/warden/internal/governance"
	"github.com/robalyx/warden/internal/notify"
	"github.com/robalyx/warden/internal/queue"
	"github.com/robalyx/warden/internal/ratelimit"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/client"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/robalyx/warden/internal/signal"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrMigrationsPending is returned when the operator declines to run pending migrations.
var ErrMigrationsPending = errors.New("database migrations are pending")

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	StatusClient rueidis.Client     // Redis client for worker status reporting
	LogManager   *telemetry.Manager // Log management system
	Engine       *governance.Engine // Governance engine backed by Postgres and Redis
}

// InitializeApp bootstraps all application dependencies in the correct order.
// Workers pass their type so their logs and traces are labelled.
func InitializeApp(
	ctx context.Context, serviceType telemetry.ServiceType, logDir string, workerType ...string,
) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	var wt string
	if len(workerType) > 0 {
		wt = workerType[0]
	}

	// Logging comes first to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Telemetry, wt)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg, db, redisManager, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		LogManager:   logManager,
		Engine:       engine,
	}, nil
}

// buildEngine wires the governance engine to the Postgres stores and Redis subsystems.
func buildEngine(
	cfg *config.Config, db database.Client, redisManager *redis.Manager, logger *zap.Logger,
) (*governance.Engine, error) {
	clients := make(map[int]rueidis.Client)
	for _, index := range []int{
		redis.RateLimitDBIndex, redis.QueueDBIndex, redis.NotificationDBIndex, redis.CacheDBIndex,
	} {
		c, err := redisManager.GetClient(index)
		if err != nil {
			return nil, err
		}
		clients[index] = c
	}

	var alerter notify.StaffAlerter = notify.NopAlerter{}
	if cfg.Common.Discord.AlertToken != "" {
		alerter = notify.NewDiscordAlerter(cfg.Common.Discord.AlertToken, cfg.Common.Discord.AlertChannelID, logger)
	} else {
		logger.Warn("No Discord alert token configured, staff alerts are disabled")
	}

	var anomalies signal.AnomalyFeed = signal.NopFeed{}
	if cfg.Common.Signals.AnomalyFeedURL != "" {
		maxConcurrent := cfg.Common.Signals.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 8
		}

		anomalies = signal.NewHTTPFeed(
			client.NewFeedClient(&cfg.Common, clients[redis.CacheDBIndex], logger),
			cfg.Common.Signals.AnomalyFeedURL,
			cfg.Common.Signals.AnomalyFeedKey,
			maxConcurrent,
			logger,
		)
	}

	return governance.New(governance.Options{
		Stores:    governance.StoresFromRepository(db.Model()),
		Queue:     queue.NewManager(clients[redis.QueueDBIndex], logger),
		Limiter:   ratelimit.NewLimiter(clients[redis.RateLimitDBIndex], logger),
		Notifier:  notify.NewOutbox(clients[redis.NotificationDBIndex], logger),
		Alerter:   alerter,
		Anomalies: anomalies,
	}, logger), nil
}

// Cleanup shuts components down in reverse initialization order.
// Failures are logged so every component still gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Redis goes last as other components might need it during cleanup
	s.RedisManager.Close()

	s.LogManager.Stop(ctx)
}

// checkAndRunMigrations connects to the database, offering to run pending migrations.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return tempDB, nil
	}

	log.Printf("%d database migrations are pending. Would you like to run them now? (y/N)", len(unapplied))

	var response string
	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		tempDB.Close()
		return nil, ErrMigrationsPending
	}

	tempDB.Close()
	return database.NewConnection(ctx, cfg, dbLogger, true)
}
