package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.4.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Worker WorkerConfig `koanf:"worker"`
}

// CommonConfig contains configuration shared by every binary.
type CommonConfig struct {
	// Version of the common config.
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Retry          Retry          `koanf:"retry"`
	PostgreSQL     PostgreSQL     `koanf:"postgresql"`
	Redis          Redis          `koanf:"redis"`
	Signals        Signals        `koanf:"signals"`
	Discord        Discord        `koanf:"discord"`
	Telemetry      Telemetry      `koanf:"telemetry"`
}

// WorkerConfig contains worker specific configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// Batch sizes for worker operations.
	BatchSizes BatchSizes `koanf:"batch_sizes"`
	// Delay between batches in milliseconds.
	BatchDelay int `koanf:"batch_delay"`
	// Intervals between worker runs.
	Interval Interval `koanf:"interval"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// CircuitBreaker contains circuit breaker configuration for outbound HTTP calls.
type CircuitBreaker struct {
	// Maximum number of requests allowed to pass through when the circuit is half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// The cyclic period of the closed state for the circuit breaker to clear the internal counts.
	Interval int `koanf:"interval"`
	// The period of the open state after which the state of the circuit breaker becomes half-open.
	Timeout int `koanf:"timeout"`
}

// Retry contains retry configuration for outbound HTTP calls.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Signals configures the anomaly detection feed.
type Signals struct {
	// Base URL of the anomaly feed. Empty disables the feed.
	AnomalyFeedURL string `koanf:"anomaly_feed_url"`
	// API key sent with every feed request.
	AnomalyFeedKey string `koanf:"anomaly_feed_key"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Maximum concurrent feed requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// How long feed responses are cached, in seconds.
	CacheTTL int `koanf:"cache_ttl"`
}

// Discord configures staff alerts.
type Discord struct {
	// Bot token used to post alerts. Empty disables alerts.
	AlertToken string `koanf:"alert_token"`
	// Channel receiving alerts.
	AlertChannelID uint64 `koanf:"alert_channel_id"`
}

// Telemetry configures the OpenTelemetry exporter.
type Telemetry struct {
	// Uptrace DSN. Empty disables export.
	DSN string `koanf:"dsn"`
	// Service name reported with traces.
	ServiceName string `koanf:"service_name"`
	// Deployment environment reported with traces.
	Environment string `koanf:"environment"`
}

// BatchSizes configures how many items each worker handles per batch.
type BatchSizes struct {
	// Users rescored per batch by the signals worker.
	SignalUsers int `koanf:"signal_users"`
	// Moderators analyzed per batch by the rogue worker.
	RogueModerators int `koanf:"rogue_moderators"`
	// Accounts reconciled per batch by the status sync worker.
	StatusAccounts int `koanf:"status_accounts"`
}

// Interval configures how long workers wait between runs, in minutes.
type Interval struct {
	Signals    int `koanf:"signals"`
	Rogue      int `koanf:"rogue"`
	StatusSync int `koanf:"status_sync"`
}

// LoadConfig loads the configuration from the config search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom([]string{
		".warden",
		homeDir + "/.warden/config",
		"/etc/warden/config",
		"/app/config",
		"config",
		".",
	})
}

// LoadConfigFrom loads common.toml and worker.toml from the first path containing each.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	for _, configName := range []string{"common", "worker"} {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, "", err
	}

	config.Worker.applyDefaults()

	return &config, usedConfigPath, nil
}

// applyDefaults fills unset worker settings.
func (w *WorkerConfig) applyDefaults() {
	if w.BatchSizes.SignalUsers <= 0 {
		w.BatchSizes.SignalUsers = 10
	}
	if w.BatchSizes.RogueModerators <= 0 {
		w.BatchSizes.RogueModerators = 10
	}
	if w.BatchSizes.StatusAccounts <= 0 {
		w.BatchSizes.StatusAccounts = 10
	}
	if w.BatchDelay < 0 {
		w.BatchDelay = 0
	}
	if w.Interval.Signals <= 0 {
		w.Interval.Signals = 24 * 60
	}
	if w.Interval.Rogue <= 0 {
		w.Interval.Rogue = 60
	}
	if w.Interval.StatusSync <= 0 {
		w.Interval.StatusSync = 15
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/warden/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
