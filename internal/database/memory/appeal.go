package memory

import (
	"context"
	"sort"

	"github.com/robalyx/warden/internal/database/types"
)

// CreateAppeal implements models.AppealModel, including the one-open-appeal-per-case index.
func (s *Store) CreateAppeal(_ context.Context, appeal *types.EnforcementAppeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appeal.Status.IsOpen() {
		for _, existing := range s.appeals {
			if existing.CaseID == appeal.CaseID && existing.Status.IsOpen() {
				return types.ErrPendingAppealExists
			}
		}
	}

	s.appeals[appeal.ID] = cloneAppeal(appeal)
	return nil
}

// GetAppeal implements models.AppealModel.
func (s *Store) GetAppeal(_ context.Context, appealID string) (*types.EnforcementAppeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appeal, ok := s.appeals[appealID]
	if !ok {
		return nil, types.ErrAppealNotFound
	}
	return cloneAppeal(appeal), nil
}

// GetOpenAppealByCase implements models.AppealModel.
func (s *Store) GetOpenAppealByCase(_ context.Context, caseID string) (*types.EnforcementAppeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, appeal := range s.appeals {
		if appeal.CaseID == caseID && appeal.Status.IsOpen() {
			return cloneAppeal(appeal), nil
		}
	}
	return nil, types.ErrAppealNotFound
}

// UpdateAppeal implements models.AppealModel.
func (s *Store) UpdateAppeal(
	_ context.Context, appealID string, fn func(*types.EnforcementAppeal) error,
) (*types.EnforcementAppeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.appeals[appealID]
	if !ok {
		return nil, types.ErrAppealNotFound
	}

	appeal := cloneAppeal(existing)
	if err := fn(appeal); err != nil {
		return nil, err
	}

	s.appeals[appealID] = cloneAppeal(appeal)
	return appeal, nil
}

// ListAppealsByCase implements models.AppealModel.
func (s *Store) ListAppealsByCase(_ context.Context, caseID string) ([]*types.EnforcementAppeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.EnforcementAppeal
	for _, appeal := range s.appeals {
		if appeal.CaseID == caseID {
			result = append(result, cloneAppeal(appeal))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result, nil
}

// CreateApproval implements models.ApprovalModel.
func (s *Store) CreateApproval(_ context.Context, approval *types.SuspensionApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.approvals[approval.ID] = cloneApproval(approval)
	return nil
}

// GetApproval implements models.ApprovalModel.
func (s *Store) GetApproval(_ context.Context, approvalID string) (*types.SuspensionApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	approval, ok := s.approvals[approvalID]
	if !ok {
		return nil, types.ErrApprovalNotFound
	}
	return cloneApproval(approval), nil
}

// UpdateApproval implements models.ApprovalModel.
func (s *Store) UpdateApproval(
	_ context.Context, approvalID string, fn func(*types.SuspensionApproval) error,
) (*types.SuspensionApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.approvals[approvalID]
	if !ok {
		return nil, types.ErrApprovalNotFound
	}

	approval := cloneApproval(existing)
	if err := fn(approval); err != nil {
		return nil, err
	}

	s.approvals[approvalID] = cloneApproval(approval)
	return approval, nil
}
