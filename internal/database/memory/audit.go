package memory

import (
	"context"
	"sort"
	"time"

	"github.com/robalyx/warden/internal/database/types"
)

// AppendAudit implements models.AuditModel.
func (s *Store) AppendAudit(_ context.Context, entry *types.ModerationAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit[entry.ID] = cloneAudit(entry)
	s.auditOrder = append(s.auditOrder, entry.ID)
	return nil
}

// GetAudit implements models.AuditModel.
func (s *Store) GetAudit(_ context.Context, id string) (*types.ModerationAuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.audit[id]
	if !ok {
		return nil, types.ErrAuditLogNotFound
	}
	return cloneAudit(entry), nil
}

// MarkAuditReversed implements models.AuditModel.
func (s *Store) MarkAuditReversed(
	_ context.Context, id, reversedBy string, reversedAt time.Time,
) (*types.ModerationAuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.audit[id]
	if !ok {
		return nil, types.ErrAuditLogNotFound
	}
	if entry.IsReversed() {
		return nil, types.ErrAuditAlreadyReversed
	}

	at := reversedAt
	entry.ReversedAt = &at
	entry.ReversedBy = reversedBy
	return cloneAudit(entry), nil
}

// ListAuditByActor implements models.AuditModel.
func (s *Store) ListAuditByActor(
	_ context.Context, actorID string, since time.Time,
) ([]*types.ModerationAuditLog, error) {
	return s.filterAudit(func(l *types.ModerationAuditLog) bool {
		return l.ActorID == actorID && !l.CreatedAt.Before(since)
	}), nil
}

// ListAuditByTarget implements models.AuditModel.
func (s *Store) ListAuditByTarget(
	_ context.Context, targetUserID string, since time.Time,
) ([]*types.ModerationAuditLog, error) {
	return s.filterAudit(func(l *types.ModerationAuditLog) bool {
		return l.TargetUserID == targetUserID && !l.CreatedAt.Before(since)
	}), nil
}

// GetAuditBetween implements models.AuditModel.
func (s *Store) GetAuditBetween(_ context.Context, start, end time.Time) ([]*types.ModerationAuditLog, error) {
	return s.filterAudit(func(l *types.ModerationAuditLog) bool {
		return !l.CreatedAt.Before(start) && l.CreatedAt.Before(end)
	}), nil
}

// ListActiveActors implements models.AuditModel.
func (s *Store) ListActiveActors(_ context.Context, since time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	for _, l := range s.filterAudit(func(l *types.ModerationAuditLog) bool {
		return l.ActorLevel > 0 && !l.CreatedAt.Before(since)
	}) {
		seen[l.ActorID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) filterAudit(keep func(*types.ModerationAuditLog) bool) []*types.ModerationAuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.ModerationAuditLog
	for _, id := range s.auditOrder {
		if entry := s.audit[id]; keep(entry) {
			result = append(result, cloneAudit(entry))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
