// Package confidence combines independent trust signals into a single enforcement
// confidence score in [0,1].
package confidence

import (
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
)

// Weights are the fixed weights of each signal source.
var Weights = map[enum.ConfidenceSourceType]float64{ //nolint:gochecknoglobals // -
	enum.SourceAIScan:           0.25,
	enum.SourceTrustedModAction: 0.25,
	enum.SourceCommunityFlag:    0.15,
	enum.SourceUserReport:       0.15,
	enum.SourceViolationHistory: 0.10,
	enum.SourceAnomalyDetection: 0.10,
}

// SourceScore is a normalized score produced by one signal source.
type SourceScore struct {
	Type      enum.ConfidenceSourceType
	Score     float64
	Timestamp time.Time
}

// Score computes the weighted average of the non-zero sources.
// Sources with a zero score or an unknown type contribute to neither the numerator
// nor the denominator, so a single strong signal is not diluted by silent ones.
// The result is clamped to [0,1] and is 0 when nothing contributed.
func Score(sources []SourceScore) (float64, []types.ConfidenceSource) {
	var (
		numerator   float64
		denominator float64
		contributed []types.ConfidenceSource
	)

	for _, source := range sources {
		weight, ok := Weights[source.Type]
		if !ok {
			continue
		}

		score := clamp(source.Score)
		if score == 0 {
			continue
		}

		contribution := score * weight
		numerator += contribution
		denominator += weight
		contributed = append(contributed, types.ConfidenceSource{
			Type:         source.Type,
			Score:        score,
			Weight:       weight,
			Contribution: contribution,
			Timestamp:    source.Timestamp,
		})
	}

	if denominator == 0 {
		return 0, contributed
	}
	return clamp(numerator / denominator), contributed
}

func clamp(v float64) float64 {
	return max(0, min(v, 1))
}
