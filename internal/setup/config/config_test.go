package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "common.toml", `
[common]
version = 1

[common.postgresql]
host = "db"
port = 5433

[common.discord]
alert_token = "token"
alert_channel_id = 1234
`)
	writeFile(t, dir, "worker.toml", `
[worker]
version = 1

[worker.batch_sizes]
signal_users = 25
`)

	cfg, used, err := config.LoadConfigFrom([]string{filepath.Join(dir, "missing"), dir})
	require.NoError(t, err)
	assert.Equal(t, dir, used)
	assert.Equal(t, "db", cfg.Common.PostgreSQL.Host)
	assert.Equal(t, 5433, cfg.Common.PostgreSQL.Port)
	assert.Equal(t, uint64(1234), cfg.Common.Discord.AlertChannelID)
	assert.Equal(t, 25, cfg.Worker.BatchSizes.SignalUsers)
	assert.Equal(t, 10, cfg.Worker.BatchSizes.RogueModerators)
	assert.Equal(t, 24*60, cfg.Worker.Interval.Signals)
}

func TestLoadConfigFromErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		common string
		worker string
		want   error
	}{
		{
			name:   "missing worker file",
			common: "[common]\nversion = 1\n",
			want:   config.ErrConfigFileNotFound,
		},
		{
			name:   "missing version",
			common: "[common.redis]\nport = 6379\n",
			worker: "[worker]\nversion = 1\n",
			want:   config.ErrConfigVersionMissing,
		},
		{
			name:   "version mismatch",
			common: "[common]\nversion = 1\n",
			worker: "[worker]\nversion = 7\n",
			want:   config.ErrConfigVersionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, dir, "common.toml", tt.common)
			if tt.worker != "" {
				writeFile(t, dir, "worker.toml", tt.worker)
			}

			_, _, err := config.LoadConfigFrom([]string{dir})
			require.ErrorIs(t, err, tt.want)
		})
	}
}
