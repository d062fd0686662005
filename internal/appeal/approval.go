package appeal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

var (
	// ErrApprovalNotFound is returned when a suspension approval does not exist.
	ErrApprovalNotFound = types.ErrApprovalNotFound
	// ErrApprovalExpired is returned when approving after the approval window closed.
	ErrApprovalExpired = errors.New("suspension approval expired")
	// ErrDuplicateApprover is returned when an admin approves the same request twice.
	ErrDuplicateApprover = errors.New("approver already approved this suspension")
	// ErrSelfSuspension is returned when an admin requests their own suspension.
	ErrSelfSuspension = errors.New("cannot request suspension of yourself")
)

const (
	// ApprovalsNeeded is how many admins beyond the requester must approve.
	ApprovalsNeeded = 2
	// ApprovalWindow is how long a suspension request stays open.
	ApprovalWindow = 48 * time.Hour
)

// ApprovalStore persists suspension approvals.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, approval *types.SuspensionApproval) error
	GetApproval(ctx context.Context, approvalID string) (*types.SuspensionApproval, error)
	UpdateApproval(
		ctx context.Context, approvalID string, fn func(*types.SuspensionApproval) error,
	) (*types.SuspensionApproval, error)
}

// ApproveResult reports the state of a quorum after an approval.
type ApproveResult struct {
	Approval *types.SuspensionApproval
	Approved bool // Whether the quorum has been reached
	Actioned bool // Whether this call reached the quorum
}

// RequestApproval opens a permanent suspension request. The requester counts as the
// first approver.
func (s *Service) RequestApproval(
	ctx context.Context, targetUserID, requesterID, reason, caseID string,
) (*types.SuspensionApproval, error) {
	if err := s.requireLevel(ctx, requesterID, enum.LevelAdmin); err != nil {
		return nil, err
	}
	if targetUserID == requesterID {
		return nil, ErrSelfSuspension
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyExplanation
	}

	now := s.now()
	approval := &types.SuspensionApproval{
		ID:              uuid.NewString(),
		TargetUserID:    targetUserID,
		RequesterID:     requesterID,
		Reason:          reason,
		CaseID:          caseID,
		Approvers:       []string{requesterID},
		ApprovalsNeeded: ApprovalsNeeded,
		Status:          enum.ApprovalPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ApprovalWindow),
	}

	if err := s.approvals.CreateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to create suspension approval: %w", err)
	}

	s.logger.Info("Suspension approval requested",
		zap.String("approvalID", approval.ID),
		zap.String("targetUserID", targetUserID),
		zap.String("requesterID", requesterID))

	return approval, nil
}

// Approve adds an admin to a suspension request. Expired requests are marked expired
// and rejected. Approving a request that already reached its quorum changes nothing.
func (s *Service) Approve(ctx context.Context, approvalID, approverID string) (*ApproveResult, error) {
	if err := s.requireLevel(ctx, approverID, enum.LevelAdmin); err != nil {
		return nil, err
	}

	now := s.now()
	var expired, actioned bool
	approval, err := s.approvals.UpdateApproval(ctx, approvalID, func(a *types.SuspensionApproval) error {
		switch a.Status {
		case enum.ApprovalApproved:
			return nil
		case enum.ApprovalExpired:
			expired = true
			return nil
		case enum.ApprovalPending:
		}

		if a.IsExpired(now) {
			a.Status = enum.ApprovalExpired
			expired = true
			return nil
		}
		if a.HasApprover(approverID) {
			return ErrDuplicateApprover
		}

		a.Approvers = append(a.Approvers, approverID)
		if a.QuorumReached() {
			a.Status = enum.ApprovalApproved
			a.ApprovedAt = &now
			actioned = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrApprovalExpired
	}

	if actioned {
		s.logger.Info("Suspension approved",
			zap.String("approvalID", approvalID),
			zap.String("targetUserID", approval.TargetUserID),
			zap.Strings("approvers", approval.Approvers))
	}

	return &ApproveResult{
		Approval: approval,
		Approved: approval.Status == enum.ApprovalApproved,
		Actioned: actioned,
	}, nil
}

// GetApproval returns a suspension approval.
func (s *Service) GetApproval(ctx context.Context, approvalID string) (*types.SuspensionApproval, error) {
	return s.approvals.GetApproval(ctx, approvalID)
}
