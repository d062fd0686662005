package signal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/robalyx/warden/internal/database/types"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrFeedStatus is returned when the anomaly feed answers with a non-success status.
var ErrFeedStatus = errors.New("unexpected anomaly feed status")

// feedResponse is the body returned by GET /v1/anomalies.
type feedResponse struct {
	Anomalies []*types.AnomalyEvent `json:"anomalies"`
}

// HTTPFeed reads anomaly detections from the anomaly detector's HTTP API.
type HTTPFeed struct {
	client  *client.Client
	baseURL string
	apiKey  string
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewHTTPFeed creates an anomaly feed client. At most maxConcurrent requests are in flight
// at once across every caller sharing the feed.
func NewHTTPFeed(
	httpClient *client.Client, baseURL, apiKey string, maxConcurrent int64, logger *zap.Logger,
) *HTTPFeed {
	return &HTTPFeed{
		client:  httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		sem:     semaphore.NewWeighted(maxConcurrent),
		logger:  logger.Named("anomaly_feed"),
	}
}

// ListAnomalies implements AnomalyFeed.
func (f *HTTPFeed) ListAnomalies(ctx context.Context, userID string, since time.Time) ([]*types.AnomalyEvent, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	// Truncated so repeated lookups within a minute share a cache entry
	sinceParam := since.UTC().Truncate(time.Minute).Format(time.RFC3339)

	resp, err := f.client.NewRequest().
		Method(http.MethodGet).
		URL(f.baseURL+"/v1/anomalies").
		Query("userId", userID).
		Query("since", sinceParam).
		Query("key", f.apiKey).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch anomalies: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read anomaly response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFeedStatus, resp.StatusCode)
	}

	var result feedResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal anomaly response: %w", err)
	}

	// The feed filters by minute; drop anything before the exact bound
	events := make([]*types.AnomalyEvent, 0, len(result.Anomalies))
	for _, event := range result.Anomalies {
		if event == nil || event.DetectedAt.Before(since) {
			continue
		}
		events = append(events, event)
	}

	f.logger.Debug("Fetched anomalies",
		zap.String("userID", userID),
		zap.Int("count", len(events)))

	return events, nil
}
