package types

import (
	"slices"
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// AppealOutcome is the single recorded decision on an appeal.
type AppealOutcome struct {
	Decision    enum.AppealDecision `json:"decision"`
	Explanation string              `json:"explanation"`
	ReviewerID  string              `json:"reviewerId"`
	ReviewedAt  time.Time           `json:"reviewedAt"`
}

// EnforcementAppeal is a user's contest of a resolved case.
type EnforcementAppeal struct {
	ID          string            `bun:",pk"`
	CaseID      string            `bun:",notnull"`
	UserID      string            `bun:",notnull"`
	Status      enum.AppealStatus `bun:",notnull"`
	Explanation string            `bun:",type:text,notnull"`
	SubmittedAt time.Time         `bun:",notnull"`
	ClaimedBy   string            `bun:",nullzero"` // Admin who picked up the appeal
	Outcome     *AppealOutcome    `bun:",type:jsonb,nullzero"`
}

// SuspensionApproval gates a permanent suspension behind several distinct admins.
type SuspensionApproval struct {
	ID              string              `bun:",pk"`
	TargetUserID    string              `bun:",notnull"`
	RequesterID     string              `bun:",notnull"`
	Reason          string              `bun:",type:text,notnull"`
	CaseID          string              `bun:",nullzero"`
	Approvers       []string            `bun:",type:jsonb,notnull"` // Includes the requester
	ApprovalsNeeded int                 `bun:",notnull"`            // Approvals required beyond the requester
	Status          enum.ApprovalStatus `bun:",notnull"`
	CreatedAt       time.Time           `bun:",notnull"`
	ExpiresAt       time.Time           `bun:",notnull"`
	ApprovedAt      *time.Time          `bun:",nullzero"`
}

// HasApprover checks if the ID already approved.
func (a *SuspensionApproval) HasApprover(id string) bool {
	return slices.Contains(a.Approvers, id)
}

// IsExpired checks if the approval window has closed.
func (a *SuspensionApproval) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// QuorumReached checks if enough distinct approvers have signed off.
func (a *SuspensionApproval) QuorumReached() bool {
	return len(a.Approvers) >= a.ApprovalsNeeded+1
}
