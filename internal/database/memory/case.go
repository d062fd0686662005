package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/robalyx/warden/internal/database/types"
)

// CreateCase implements models.CaseModel, including the one-open-case-per-subject index.
func (s *Store) CreateCase(_ context.Context, c *types.ModerationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Status.IsOpen() {
		for _, existing := range s.cases {
			if existing.SubjectUserID == c.SubjectUserID && existing.Status.IsOpen() {
				return types.ErrOpenCaseExists
			}
		}
	}

	s.cases[c.ID] = cloneCase(c)
	return nil
}

// GetCase implements models.CaseModel.
func (s *Store) GetCase(_ context.Context, caseID string) (*types.ModerationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[caseID]
	if !ok {
		return nil, types.ErrCaseNotFound
	}
	return cloneCase(c), nil
}

// GetOpenCaseBySubject implements models.CaseModel.
func (s *Store) GetOpenCaseBySubject(_ context.Context, subjectUserID string) (*types.ModerationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cases {
		if c.SubjectUserID == subjectUserID && c.Status.IsOpen() {
			return cloneCase(c), nil
		}
	}
	return nil, types.ErrCaseNotFound
}

// UpdateCase implements models.CaseModel. The store lock stands in for the row lock.
func (s *Store) UpdateCase(
	_ context.Context, caseID string, fn func(*types.ModerationCase) error,
) (*types.ModerationCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.cases[caseID]
	if !ok {
		return nil, types.ErrCaseNotFound
	}

	c := cloneCase(existing)
	if err := fn(c); err != nil {
		return nil, err
	}

	s.cases[caseID] = cloneCase(c)
	return c, nil
}

// ListCasesBySubject implements models.CaseModel.
func (s *Store) ListCasesBySubject(_ context.Context, subjectUserID string) ([]*types.ModerationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.ModerationCase
	for _, c := range s.cases {
		if c.SubjectUserID == subjectUserID {
			result = append(result, cloneCase(c))
		}
	}
	sortCases(result)
	return result, nil
}

// GetCasesOpenedBetween implements models.CaseModel.
func (s *Store) GetCasesOpenedBetween(_ context.Context, start, end time.Time) ([]*types.ModerationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.ModerationCase
	for _, c := range s.cases {
		if !c.OpenedAt.Before(start) && c.OpenedAt.Before(end) {
			result = append(result, cloneCase(c))
		}
	}
	sortCases(result)
	return result, nil
}

func sortCases(cases []*types.ModerationCase) {
	sort.Slice(cases, func(i, j int) bool {
		if cases[i].OpenedAt.Equal(cases[j].OpenedAt) {
			return cases[i].ID < cases[j].ID
		}
		return cases[i].OpenedAt.Before(cases[j].OpenedAt)
	})
}

// AppendCaseHistory implements models.CaseModel.
func (s *Store) AppendCaseHistory(_ context.Context, entry *types.CaseHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historySeq++
	entry.ID = s.historySeq
	s.history = append(s.history, cloneHistory(entry))
	return nil
}

// GetCaseHistory implements models.CaseModel.
func (s *Store) GetCaseHistory(ctx context.Context, caseID string) ([]*types.CaseHistoryEntry, error) {
	return s.GetHistoryForCases(ctx, []string{caseID})
}

// GetHistoryForCases implements models.CaseModel.
func (s *Store) GetHistoryForCases(_ context.Context, caseIDs []string) ([]*types.CaseHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.CaseHistoryEntry
	for _, h := range s.history {
		if slices.Contains(caseIDs, h.CaseID) {
			result = append(result, cloneHistory(h))
		}
	}
	return result, nil
}
