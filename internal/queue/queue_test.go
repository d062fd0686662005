package queue_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*queue.Manager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return queue.NewManager(client, zap.NewNop()), mr
}

func TestEnqueue(t *testing.T) {
	t.Parallel()
	manager, mr := setupTest(t)
	ctx := t.Context()

	item := &queue.Item{
		CaseID:        "case-1",
		SubjectUserID: "user-1",
		Priority:      enum.PriorityHigh,
		Reasons:       []enum.ReasonCode{enum.ReasonKycMismatch},
		Confidence:    0.7,
		QueuedAt:      time.Now(),
	}
	require.NoError(t, manager.Enqueue(ctx, item))

	assert.Equal(t, 1, manager.Length(ctx, enum.PriorityHigh))
	assert.True(t, mr.Exists(queue.ItemsKey))

	got, err := manager.Get(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.SubjectUserID)
	assert.Equal(t, []enum.ReasonCode{enum.ReasonKycMismatch}, got.Reasons)
}

func TestEnqueueMovesPriority(t *testing.T) {
	t.Parallel()
	manager, _ := setupTest(t)
	ctx := t.Context()

	item := &queue.Item{CaseID: "case-1", Priority: enum.PriorityMedium, QueuedAt: time.Now()}
	require.NoError(t, manager.Enqueue(ctx, item))

	item.Priority = enum.PriorityCritical
	require.NoError(t, manager.Enqueue(ctx, item))

	assert.Equal(t, 0, manager.Length(ctx, enum.PriorityMedium))
	assert.Equal(t, 1, manager.Length(ctx, enum.PriorityCritical))
}

func TestPeekOrder(t *testing.T) {
	t.Parallel()
	manager, _ := setupTest(t)
	ctx := t.Context()

	base := time.Now().Add(-time.Hour)
	items := []*queue.Item{
		{CaseID: "low-old", Priority: enum.PriorityLow, QueuedAt: base},
		{CaseID: "critical-new", Priority: enum.PriorityCritical, QueuedAt: base.Add(30 * time.Minute)},
		{CaseID: "high-old", Priority: enum.PriorityHigh, QueuedAt: base},
		{CaseID: "critical-old", Priority: enum.PriorityCritical, QueuedAt: base.Add(time.Minute)},
	}
	for _, item := range items {
		require.NoError(t, manager.Enqueue(ctx, item))
	}

	peeked, err := manager.Peek(ctx, 3)
	require.NoError(t, err)
	require.Len(t, peeked, 3)
	assert.Equal(t, "critical-old", peeked[0].CaseID)
	assert.Equal(t, "critical-new", peeked[1].CaseID)
	assert.Equal(t, "high-old", peeked[2].CaseID)
}

func TestRemove(t *testing.T) {
	t.Parallel()
	manager, _ := setupTest(t)
	ctx := t.Context()

	item := &queue.Item{CaseID: "case-1", Priority: enum.PriorityLow, QueuedAt: time.Now()}
	require.NoError(t, manager.Enqueue(ctx, item))
	require.NoError(t, manager.Remove(ctx, "case-1"))

	assert.Equal(t, 0, manager.Length(ctx, enum.PriorityLow))

	_, err := manager.Get(ctx, "case-1")
	require.ErrorIs(t, err, queue.ErrItemNotFound)

	// Removing an absent case is a no-op
	require.NoError(t, manager.Remove(ctx, "missing"))
}
