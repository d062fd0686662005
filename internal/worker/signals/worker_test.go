package signals_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/memory"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/worker/core"
	"github.com/robalyx/warden/internal/worker/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeEnforcer struct {
	mu    sync.Mutex
	seen  []string
	tiers map[string]enum.Tier
	fail  map[string]bool
}

func (f *fakeEnforcer) ApplyFederatedEnforcement(_ context.Context, userID string) (enum.Tier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, userID)
	if f.fail[userID] {
		return enum.TierNone, errors.New("score failed")
	}
	if tier, ok := f.tiers[userID]; ok {
		return tier, nil
	}
	return enum.TierNone, nil
}

func newReporter(t *testing.T) *core.StatusReporter {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return core.NewStatusReporter(client, "signals", zap.NewNop())
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	store := memory.New()
	for i, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		store.PutTrustProfile(&types.TrustProfile{
			UserID:    id,
			UpdatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		})
	}
	store.PutTrustProfile(&types.TrustProfile{UserID: "stale", UpdatedAt: baseTime.Add(-time.Hour)})

	enforcer := &fakeEnforcer{
		tiers: map[string]enum.Tier{"u2": enum.TierSoft, "u4": enum.TierHard},
		fail:  map[string]bool{"u5": true},
	}

	worker := signals.NewWorker(store, enforcer, newReporter(t), signals.Options{BatchSize: 2}, zap.NewNop())
	summary, err := worker.RunOnce(t.Context(), baseTime)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 2, summary.Enforced)
	assert.Equal(t, 1, summary.Failed)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3", "u4", "u5"}, enforcer.seen)
}

func TestRunOnceNothingChanged(t *testing.T) {
	t.Parallel()

	store := memory.New()
	store.PutTrustProfile(&types.TrustProfile{UserID: "u1", UpdatedAt: baseTime.Add(-time.Hour)})

	enforcer := &fakeEnforcer{}
	worker := signals.NewWorker(store, enforcer, newReporter(t), signals.Options{BatchSize: 10}, zap.NewNop())

	summary, err := worker.RunOnce(t.Context(), baseTime)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, enforcer.seen)
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := memory.New()
	for _, id := range []string{"u1", "u2", "u3"} {
		store.PutTrustProfile(&types.TrustProfile{UserID: id, UpdatedAt: baseTime})
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	worker := signals.NewWorker(store, &fakeEnforcer{}, newReporter(t), signals.Options{
		BatchSize:  1,
		BatchDelay: time.Hour,
	}, zap.NewNop())

	summary, err := worker.RunOnce(ctx, baseTime)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Processed)
}
