package types

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// RoguePatternMatch describes one pattern that fired during analysis.
type RoguePatternMatch struct {
	Type        enum.RoguePattern `json:"type"`
	Description string            `json:"description"`
	Value       float64           `json:"value"`
}

// RogueModeratorDetection is an append-only record of a suspicious moderator.
type RogueModeratorDetection struct {
	ID                string              `bun:",pk"`
	ModeratorID       string              `bun:",notnull"`
	Patterns          []RoguePatternMatch `bun:",type:jsonb,notnull"`
	TotalActions      int                 `bun:",notnull"`
	ReversedActions   int                 `bun:",notnull"`
	FalsePositiveRate float64             `bun:",notnull"`
	AutoSuspended     bool                `bun:",notnull"`
	CaseID            string              `bun:",nullzero"`
	DetectedAt        time.Time           `bun:",notnull"`
}
