package ratelimit_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTest(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis, *time.Time) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	now := baseTime
	limiter := ratelimit.NewLimiter(client, zap.NewNop()).WithClock(func() time.Time { return now })

	return limiter, mr, &now
}

func TestWindowLimit(t *testing.T) {
	t.Parallel()
	limiter, _, now := setupTest(t)
	ctx := t.Context()
	action := enum.ActionApplyVisibilityRestriction

	for i := range 10 {
		result := limiter.Check(ctx, "mod-1", action)
		require.True(t, result.Allowed, "action %d", i+1)
		assert.Equal(t, 10-i, result.Remaining)
		require.NoError(t, limiter.Record(ctx, "mod-1", action))
		*now = now.Add(time.Minute)
	}

	result := limiter.Check(ctx, "mod-1", action)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 50, result.RetryAfterMinutes)

	*now = baseTime.Add(61 * time.Minute)
	result = limiter.Check(ctx, "mod-1", action)
	assert.True(t, result.Allowed)
	assert.Equal(t, 10, result.Remaining)

	require.NoError(t, limiter.Record(ctx, "mod-1", action))
	result = limiter.Check(ctx, "mod-1", action)
	assert.True(t, result.Allowed)
	assert.Equal(t, 9, result.Remaining)
}

func TestWindowsAreIndependent(t *testing.T) {
	t.Parallel()
	limiter, _, _ := setupTest(t)
	ctx := t.Context()

	for range 5 {
		require.NoError(t, limiter.Record(ctx, "mod-1", enum.ActionFullEnforcement))
	}

	assert.False(t, limiter.Check(ctx, "mod-1", enum.ActionFullEnforcement).Allowed)
	assert.True(t, limiter.Check(ctx, "mod-2", enum.ActionFullEnforcement).Allowed)
	assert.Equal(t, 50, limiter.Check(ctx, "mod-1", enum.ActionFlagUser).Remaining)
}

func TestWindowKeyExpires(t *testing.T) {
	t.Parallel()
	limiter, mr, _ := setupTest(t)
	ctx := t.Context()
	key := ratelimit.Key("mod-1", enum.ActionFlagUser)

	require.NoError(t, limiter.Record(ctx, "mod-1", enum.ActionFlagUser))
	require.True(t, mr.Exists(key))
	assert.Equal(t, "1", mr.HGet(key, "count"))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(time.Hour)
	assert.False(t, mr.Exists(key))
}

func TestUnknownActionIsUnlimited(t *testing.T) {
	t.Parallel()
	limiter, mr, _ := setupTest(t)
	ctx := t.Context()

	require.NoError(t, limiter.Record(ctx, "mod-1", "unknown_action"))
	result := limiter.Check(ctx, "mod-1", "unknown_action")
	assert.True(t, result.Allowed)
	assert.Equal(t, ratelimit.Unlimited, result.Remaining)
	assert.Empty(t, mr.Keys())
}

func TestCheckFailsOpen(t *testing.T) {
	t.Parallel()
	limiter, mr, _ := setupTest(t)
	ctx := t.Context()

	for range 5 {
		require.NoError(t, limiter.Record(ctx, "mod-1", enum.ActionFullEnforcement))
	}
	mr.SetError("connection refused")

	result := limiter.Check(ctx, "mod-1", enum.ActionFullEnforcement)
	assert.True(t, result.Allowed)
	assert.Equal(t, 5, result.Remaining)

	require.Error(t, limiter.Record(ctx, "mod-1", enum.ActionFullEnforcement))
}
