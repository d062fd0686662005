package types

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// ConfidenceSource is one weighted signal that contributed to a score.
type ConfidenceSource struct {
	Type         enum.ConfidenceSourceType `json:"type"`
	Score        float64                   `json:"score"`        // Normalized source value in [0,1]
	Weight       float64                   `json:"weight"`       // Fixed weight of the source
	Contribution float64                   `json:"contribution"` // Score multiplied by weight
	Timestamp    time.Time                 `json:"timestamp"`
}

// EnforcementConfidence is the latest computed confidence score for a user.
// Each computation overwrites the previous record.
type EnforcementConfidence struct {
	UserID       string             `bun:",pk"`
	Score        float64            `bun:",notnull"`
	Sources      []ConfidenceSource `bun:",type:jsonb,notnull"`
	CalculatedAt time.Time          `bun:",notnull"`
}
