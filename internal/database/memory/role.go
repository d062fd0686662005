package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
)

// GetUserRoles implements models.RoleModel.
func (s *Store) GetUserRoles(_ context.Context, userID string) (*types.UserRoles, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles, ok := s.roles[userID]
	if !ok {
		return nil, types.ErrUserRolesNotFound
	}
	return cloneRoles(roles), nil
}

// SaveUserRoles implements models.RoleModel.
func (s *Store) SaveUserRoles(_ context.Context, roles *types.UserRoles) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRoles(roles)
	if existing, ok := s.roles[roles.UserID]; ok {
		stored.GrantedAt = existing.GrantedAt
	}
	s.roles[roles.UserID] = stored
	return nil
}

// GetModeratorIDs implements models.RoleModel.
func (s *Store) GetModeratorIDs(_ context.Context, afterUserID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, roles := range s.roles {
		if id <= afterUserID {
			continue
		}
		if slices.ContainsFunc(roles.Roles, func(r enum.Role) bool {
			return slices.Contains(enum.ModeratorRoles, r)
		}) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// SaveConfidence implements models.ConfidenceModel.
func (s *Store) SaveConfidence(_ context.Context, confidence *types.EnforcementConfidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confidences[confidence.UserID] = cloneConfidence(confidence)
	return nil
}

// GetConfidence implements models.ConfidenceModel.
func (s *Store) GetConfidence(_ context.Context, userID string) (*types.EnforcementConfidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	confidence, ok := s.confidences[userID]
	if !ok {
		return nil, types.ErrConfidenceNotFound
	}
	return cloneConfidence(confidence), nil
}

// CreateDetection implements models.DetectionModel.
func (s *Store) CreateDetection(_ context.Context, d *types.RogueModeratorDetection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detections = append(s.detections, cloneDetection(d))
	return nil
}

// GetLatestDetection implements models.DetectionModel.
func (s *Store) GetLatestDetection(_ context.Context, moderatorID string) (*types.RogueModeratorDetection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *types.RogueModeratorDetection
	for _, d := range s.detections {
		if d.ModeratorID != moderatorID {
			continue
		}
		if latest == nil || d.DetectedAt.After(latest.DetectedAt) {
			latest = d
		}
	}
	if latest == nil {
		return nil, types.ErrDetectionNotFound
	}
	return cloneDetection(latest), nil
}

// Detections returns every stored detection for a moderator.
func (s *Store) Detections(moderatorID string) []*types.RogueModeratorDetection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.RogueModeratorDetection
	for _, d := range s.detections {
		if d.ModeratorID == moderatorID {
			result = append(result, cloneDetection(d))
		}
	}
	return result
}

// GetAccountState implements models.AccountStateModel.
func (s *Store) GetAccountState(_ context.Context, userID string) (*types.AccountEnforcementState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.accounts[userID]
	if !ok {
		return nil, types.ErrAccountStateNotFound
	}
	return cloneAccount(state), nil
}

// SaveAccountState implements models.AccountStateModel.
func (s *Store) SaveAccountState(_ context.Context, state *types.AccountEnforcementState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[state.UserID] = cloneAccount(state)
	return nil
}

// ListAccountStates implements models.AccountStateModel.
func (s *Store) ListAccountStates(
	_ context.Context, afterUserID string, limit int,
) ([]*types.AccountEnforcementState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		if id > afterUserID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	states := make([]*types.AccountEnforcementState, 0, len(ids))
	for _, id := range ids {
		states = append(states, cloneAccount(s.accounts[id]))
	}
	return states, nil
}

// PutTrustProfile stores a trust profile as the signal producers would.
func (s *Store) PutTrustProfile(profile *types.TrustProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *profile
	s.profiles[profile.UserID] = &c
}

// FailTrustProfiles makes every trust profile read return err. Nil restores normal reads.
func (s *Store) FailTrustProfiles(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failProfiles = err
}

// GetTrustProfile implements models.SignalModel.
func (s *Store) GetTrustProfile(_ context.Context, userID string) (*types.TrustProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failProfiles != nil {
		return nil, s.failProfiles
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, types.ErrTrustProfileNotFound
	}
	c := *profile
	return &c, nil
}

// ListTrustProfilesUpdatedSince implements models.SignalModel.
func (s *Store) ListTrustProfilesUpdatedSince(
	_ context.Context, since time.Time, afterUserID string, limit int,
) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, profile := range s.profiles {
		if id > afterUserID && !profile.UpdatedAt.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// CountUniqueReporters implements models.SignalModel.
func (s *Store) CountUniqueReporters(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reporters := make(map[string]struct{})
	for _, r := range s.reports {
		if r.ReportedUserID == userID && !r.CreatedAt.Before(since) {
			reporters[r.ReporterID] = struct{}{}
		}
	}
	return len(reporters), nil
}

// CreateReport implements models.SignalModel.
func (s *Store) CreateReport(_ context.Context, report *types.ContentReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *report
	s.reports = append(s.reports, &c)
	return nil
}

// AddAnomaly records an anomaly event returned by ListAnomalies.
func (s *Store) AddAnomaly(event *types.AnomalyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *event
	s.anomalies = append(s.anomalies, &c)
}

// FailAnomalies makes every anomaly read return err. Nil restores normal reads.
func (s *Store) FailAnomalies(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failAnomaly = err
}

// ListAnomalies returns the anomaly events for a user detected since the given time.
func (s *Store) ListAnomalies(_ context.Context, userID string, since time.Time) ([]*types.AnomalyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failAnomaly != nil {
		return nil, s.failAnomaly
	}

	var events []*types.AnomalyEvent
	for _, e := range s.anomalies {
		if e.UserID == userID && !e.DetectedAt.Before(since) {
			c := *e
			events = append(events, &c)
		}
	}
	return events, nil
}
