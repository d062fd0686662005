package enum

// CaseStatus is the lifecycle state of a moderation case.
type CaseStatus string

const (
	CaseStatusOpen          CaseStatus = "open"
	CaseStatusUnderReview   CaseStatus = "under_review"
	CaseStatusPendingAction CaseStatus = "pending_action"
	CaseStatusResolved      CaseStatus = "resolved"
	CaseStatusEscalated     CaseStatus = "escalated"
	CaseStatusAppealed      CaseStatus = "appealed"
)

// IsOpen reports whether the status counts toward the one-open-case-per-subject rule.
func (s CaseStatus) IsOpen() bool {
	return s == CaseStatusOpen || s == CaseStatusUnderReview
}

// OpenCaseStatuses are the statuses covered by the open case uniqueness rule.
var OpenCaseStatuses = []CaseStatus{CaseStatusOpen, CaseStatusUnderReview}

// Priority orders cases in the human review queue.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns a sortable weight for the priority. Empty priorities rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 0
	}
}

// Max returns the higher of two priorities.
func (p Priority) Max(other Priority) Priority {
	if other.Rank() > p.Rank() {
		return other
	}
	return p
}

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// ReasonCode describes why a case was opened.
type ReasonCode string

const (
	ReasonSpam                 ReasonCode = "spam"
	ReasonHarassment           ReasonCode = "harassment"
	ReasonIdentityFraud        ReasonCode = "identity_fraud"
	ReasonKycMismatch          ReasonCode = "kyc_mismatch"
	ReasonHighRiskContent      ReasonCode = "high_risk_content"
	ReasonMinorSafety          ReasonCode = "minor_safety"
	ReasonCriminalActivity     ReasonCode = "criminal_activity"
	ReasonCoordinatedAbuse     ReasonCode = "coordinated_abuse"
	ReasonPersistentViolations ReasonCode = "persistent_violations"
	ReasonMonetizationBypass   ReasonCode = "monetization_bypass"
	ReasonGovernanceBypass     ReasonCode = "governance_bypass"
)

// ResolutionOutcome is the result recorded when a case is resolved.
type ResolutionOutcome string

const (
	OutcomeActioned  ResolutionOutcome = "actioned"
	OutcomeDismissed ResolutionOutcome = "dismissed"
	OutcomeEscalated ResolutionOutcome = "escalated"
)

// IsValid reports whether the outcome is known.
func (o ResolutionOutcome) IsValid() bool {
	switch o {
	case OutcomeActioned, OutcomeDismissed, OutcomeEscalated:
		return true
	default:
		return false
	}
}

// ActorType identifies who performed a case mutation.
type ActorType string

const (
	ActorSystem    ActorType = "system"
	ActorModerator ActorType = "moderator"
	ActorUser      ActorType = "user"
)

// CaseAction names the entries appended to a case history.
type CaseAction string

const (
	CaseActionCreated        CaseAction = "created"
	CaseActionMerged         CaseAction = "merged"
	CaseActionAssigned       CaseAction = "assigned"
	CaseActionResolved       CaseAction = "resolved"
	CaseActionEscalated      CaseAction = "escalated"
	CaseActionAppealed       CaseAction = "appealed"
	CaseActionAppealReviewed CaseAction = "appeal_reviewed"
	CaseActionAppealReverted CaseAction = "appeal_reverted"
	CaseActionQueued         CaseAction = "queued"
)
