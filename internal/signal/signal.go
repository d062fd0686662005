// Package signal declares the trust-signal collaborators read by the confidence engine
// and provides the HTTP adapter for the anomaly detection feed.
package signal

import (
	"context"
	"time"

	"github.com/robalyx/warden/internal/database/types"
)

// TrustProfileReader reads the flag counters kept by the trust-signal producers.
type TrustProfileReader interface {
	GetTrustProfile(ctx context.Context, userID string) (*types.TrustProfile, error)
}

// ReportStore reads content reports filed against users.
type ReportStore interface {
	CountUniqueReporters(ctx context.Context, userID string, since time.Time) (int, error)
}

// AnomalyFeed lists anomaly detections for a user.
type AnomalyFeed interface {
	ListAnomalies(ctx context.Context, userID string, since time.Time) ([]*types.AnomalyEvent, error)
}

// NopFeed is an AnomalyFeed that never reports anything.
// It is used when no anomaly feed is configured.
type NopFeed struct{}

// ListAnomalies implements AnomalyFeed.
func (NopFeed) ListAnomalies(context.Context, string, time.Time) ([]*types.AnomalyEvent, error) {
	return nil, nil
}
