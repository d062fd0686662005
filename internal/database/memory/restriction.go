package memory

import (
	"context"

	"github.com/robalyx/warden/internal/database/types"
)

// GetVisibilityRestriction implements models.RestrictionModel.
func (s *Store) GetVisibilityRestriction(_ context.Context, userID string) (*types.VisibilityRestriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.visibility[userID]
	if !ok {
		return nil, types.ErrRestrictionNotFound
	}
	c := *r
	return &c, nil
}

// SaveVisibilityRestriction implements models.RestrictionModel.
func (s *Store) SaveVisibilityRestriction(_ context.Context, r *types.VisibilityRestriction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.visibility[r.UserID] = &c
	return nil
}

// DeleteVisibilityRestriction implements models.RestrictionModel.
func (s *Store) DeleteVisibilityRestriction(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.visibility, userID)
	return nil
}

// GetPostingRestriction implements models.RestrictionModel.
func (s *Store) GetPostingRestriction(_ context.Context, userID string) (*types.PostingRestriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.posting[userID]
	if !ok {
		return nil, types.ErrRestrictionNotFound
	}
	c := *r
	return &c, nil
}

// SavePostingRestriction implements models.RestrictionModel.
func (s *Store) SavePostingRestriction(_ context.Context, r *types.PostingRestriction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.posting[r.UserID] = &c
	return nil
}

// DeletePostingRestriction implements models.RestrictionModel.
func (s *Store) DeletePostingRestriction(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.posting, userID)
	return nil
}
