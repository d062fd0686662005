package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRotatesSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for _, name := range []string{"2000-01-01_00-00-00", "2000-01-02_00-00-00", "2000-01-03_00-00-00"} {
		require.NoError(t, os.MkdirAll(filepath.Join(logDir, name), 0o755))
	}

	manager := telemetry.NewManager(telemetry.ServiceWorker, logDir,
		&config.Debug{LogLevel: "info", MaxLogsToKeep: 2, MaxLogLines: 100},
		&config.Telemetry{}, "rogue")
	t.Cleanup(func() { manager.Stop(t.Context()) })

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)
	mainLogger.Info("started")
	dbLogger.Info("connected")

	sessions, err := filepath.Glob(filepath.Join(logDir, "*"))
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, filepath.Join(logDir, "2000-01-03_00-00-00"), sessions[0])

	data, err := os.ReadFile(filepath.Join(sessions[1], "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
	assert.NotEmpty(t, manager.GetInstanceID())
}

func TestManagerRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(telemetry.ServiceExport, t.TempDir(),
		&config.Debug{LogLevel: "loud", MaxLogsToKeep: 2, MaxLogLines: 100},
		&config.Telemetry{}, "")

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
