package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerSelectsDatabase(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())
	t.Cleanup(manager.Close)

	queueClient, err := manager.GetClient(redis.QueueDBIndex)
	require.NoError(t, err)

	again, err := manager.GetClient(redis.QueueDBIndex)
	require.NoError(t, err)
	assert.Same(t, queueClient, again)

	ctx := t.Context()
	require.NoError(t, queueClient.Do(ctx, queueClient.B().Set().Key("k").Value("v").Build()).Error())

	mr.Select(redis.QueueDBIndex)
	value, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	mr.Select(redis.CacheDBIndex)
	assert.False(t, mr.Exists("k"))
}
