package enum

// ActionType is a moderator-initiated action subject to authorization,
// rate limiting and audit logging.
type ActionType string

const (
	ActionFlagUser                   ActionType = "flag_user"
	ActionHideContent                ActionType = "hide_content"
	ActionApplyVisibilityRestriction ActionType = "apply_visibility_restriction"
	ActionApplyPostingRestriction    ActionType = "apply_posting_restriction"
	ActionFullEnforcement            ActionType = "full_enforcement"
	ActionAssignCase                 ActionType = "assign_case"
	ActionResolveCase                ActionType = "resolve_case"
	ActionEscalateCase               ActionType = "escalate_case"
	ActionClaimAppeal                ActionType = "claim_appeal"
	ActionReviewAppeal               ActionType = "review_appeal"
	ActionSubmitAppeal               ActionType = "submit_appeal"
	ActionAssignRole                 ActionType = "assign_role"
	ActionRequestSuspension          ActionType = "request_suspension"
	ActionApproveSuspension          ActionType = "approve_suspension"
	ActionReverseAction              ActionType = "reverse_action"
	ActionLiftRestriction            ActionType = "lift_restriction"
)
