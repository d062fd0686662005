package types

import "errors"

var (
	ErrUserRolesNotFound    = errors.New("user roles not found")
	ErrConfidenceNotFound   = errors.New("enforcement confidence not found")
	ErrCaseNotFound         = errors.New("case not found")
	ErrOpenCaseExists       = errors.New("an open case already exists for this subject")
	ErrAuditLogNotFound     = errors.New("audit log entry not found")
	ErrAppealNotFound       = errors.New("appeal not found")
	ErrPendingAppealExists  = errors.New("a pending appeal already exists for this case")
	ErrApprovalNotFound     = errors.New("suspension approval not found")
	ErrRestrictionNotFound  = errors.New("restriction not found")
	ErrDetectionNotFound    = errors.New("rogue detection not found")
	ErrAccountStateNotFound = errors.New("account enforcement state not found")
	ErrTrustProfileNotFound = errors.New("trust profile not found")
	ErrAuditAlreadyReversed = errors.New("audit log entry already reversed")
)
