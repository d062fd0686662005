package enum

// AppealStatus represents the status of an enforcement appeal.
type AppealStatus string

const (
	AppealStatusPending     AppealStatus = "pending"
	AppealStatusUnderReview AppealStatus = "under_review"
	AppealStatusApproved    AppealStatus = "approved"
	AppealStatusRejected    AppealStatus = "rejected"
)

// IsOpen reports whether the appeal still awaits a decision.
func (s AppealStatus) IsOpen() bool {
	return s == AppealStatusPending || s == AppealStatusUnderReview
}

// AppealDecision is the reviewer's ruling on an appeal.
type AppealDecision string

const (
	AppealUpheld     AppealDecision = "upheld"
	AppealOverturned AppealDecision = "overturned"
	AppealModified   AppealDecision = "modified"
)

// IsValid reports whether the decision is known.
func (d AppealDecision) IsValid() bool {
	switch d {
	case AppealUpheld, AppealOverturned, AppealModified:
		return true
	default:
		return false
	}
}

// ApprovalStatus is the state of a suspension quorum.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalExpired  ApprovalStatus = "expired"
)
