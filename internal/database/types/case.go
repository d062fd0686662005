package types

import (
	"slices"
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// OpenedByAuto marks cases and restrictions created by the system.
const OpenedByAuto = "AUTO"

// CaseResolution records how a case was closed.
type CaseResolution struct {
	Outcome    enum.ResolutionOutcome `json:"outcome"`
	ReviewNote string                 `json:"reviewNote"`
	ReviewerID string                 `json:"reviewerId"`
	ResolvedAt time.Time              `json:"resolvedAt"`
}

// ModerationCase tracks one subject's open concerns through to resolution.
// Cases are never deleted.
type ModerationCase struct {
	ID            string            `bun:",pk"`
	SubjectUserID string            `bun:",notnull"`
	Status        enum.CaseStatus   `bun:",notnull"`
	Priority      enum.Priority     `bun:",notnull"`
	OpenedAt      time.Time         `bun:",notnull"`
	OpenedBy      string            `bun:",notnull"`  // "AUTO" or the moderator ID
	AssigneeID    string            `bun:",nullzero"` // Moderator reviewing the case
	ReasonCodes   []enum.ReasonCode `bun:",type:jsonb,notnull"`
	Confidence    float64           `bun:",notnull"` // Confidence score when the case was opened
	Resolution    *CaseResolution   `bun:",type:jsonb,nullzero"`
	AppealID      string            `bun:",nullzero"` // Latest appeal filed against the case
	UpdatedAt     time.Time         `bun:",notnull"`
}

// HasReason checks if the case carries the given reason code.
func (c *ModerationCase) HasReason(code enum.ReasonCode) bool {
	return slices.Contains(c.ReasonCodes, code)
}

// MergeReasons adds reason codes not yet on the case and returns the ones added.
func (c *ModerationCase) MergeReasons(codes []enum.ReasonCode) []enum.ReasonCode {
	var added []enum.ReasonCode
	for _, code := range codes {
		if !c.HasReason(code) {
			c.ReasonCodes = append(c.ReasonCodes, code)
			added = append(added, code)
		}
	}
	return added
}

// CaseHistoryEntry is an immutable record of a case mutation.
// Each entry is its own row so concurrent appends never overwrite each other.
type CaseHistoryEntry struct {
	ID        int64           `bun:",pk,autoincrement"`
	CaseID    string          `bun:",notnull"`
	ActorID   string          `bun:",notnull"`
	ActorType enum.ActorType  `bun:",notnull"`
	Action    enum.CaseAction `bun:",notnull"`
	Details   map[string]any  `bun:",type:jsonb"`
	CreatedAt time.Time       `bun:",notnull"`
}
