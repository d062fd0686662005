package signal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaxron/axonet/pkg/client"
	"github.com/robalyx/warden/internal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPFeedListAnomalies(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/anomalies", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("userId"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"anomalies":[` +
			`{"id":"a1","userId":"user-1","kind":"velocity","severity":0.6,"detectedAt":"` +
			now.Add(-time.Hour).Format(time.RFC3339) + `"},` +
			`{"id":"a2","userId":"user-1","kind":"geo","severity":0.9,"detectedAt":"` +
			now.Add(-30*24*time.Hour).Format(time.RFC3339) + `"}]}`))
	}))
	t.Cleanup(server.Close)

	feed := signal.NewHTTPFeed(client.NewClient(), server.URL+"/", "secret", 2, zap.NewNop())

	events, err := feed.ListAnomalies(t.Context(), "user-1", now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].ID)
	assert.InDelta(t, 0.6, events[0].Severity, 1e-9)
}

func TestHTTPFeedServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	feed := signal.NewHTTPFeed(client.NewClient(), server.URL, "", 1, zap.NewNop())

	_, err := feed.ListAnomalies(t.Context(), "user-1", time.Now().Add(-time.Hour))
	require.Error(t, err)
}

func TestNopFeed(t *testing.T) {
	t.Parallel()

	events, err := signal.NopFeed{}.ListAnomalies(t.Context(), "user-1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
}
