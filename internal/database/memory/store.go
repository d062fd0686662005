// Package memory provides an in-memory implementation of the database models.
// It is used by package tests and local dry runs where no PostgreSQL is available.
package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/robalyx/warden/internal/database/types"
)

// Store keeps every record family in maps guarded by a single mutex.
// Records are copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	roles        map[string]*types.UserRoles
	confidences  map[string]*types.EnforcementConfidence
	cases        map[string]*types.ModerationCase
	history      []*types.CaseHistoryEntry
	historySeq   int64
	audit        map[string]*types.ModerationAuditLog
	auditOrder   []string
	appeals      map[string]*types.EnforcementAppeal
	approvals    map[string]*types.SuspensionApproval
	visibility   map[string]*types.VisibilityRestriction
	posting      map[string]*types.PostingRestriction
	detections   []*types.RogueModeratorDetection
	accounts     map[string]*types.AccountEnforcementState
	profiles     map[string]*types.TrustProfile
	reports      []*types.ContentReport
	anomalies    []*types.AnomalyEvent
	failAnomaly  error
	failProfiles error
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		roles:       make(map[string]*types.UserRoles),
		confidences: make(map[string]*types.EnforcementConfidence),
		cases:       make(map[string]*types.ModerationCase),
		audit:       make(map[string]*types.ModerationAuditLog),
		appeals:     make(map[string]*types.EnforcementAppeal),
		approvals:   make(map[string]*types.SuspensionApproval),
		visibility:  make(map[string]*types.VisibilityRestriction),
		posting:     make(map[string]*types.PostingRestriction),
		accounts:    make(map[string]*types.AccountEnforcementState),
		profiles:    make(map[string]*types.TrustProfile),
	}
}

func cloneRoles(r *types.UserRoles) *types.UserRoles {
	c := *r
	c.Roles = slices.Clone(r.Roles)
	if r.SuspendedAt != nil {
		t := *r.SuspendedAt
		c.SuspendedAt = &t
	}
	return &c
}

func cloneConfidence(e *types.EnforcementConfidence) *types.EnforcementConfidence {
	c := *e
	c.Sources = slices.Clone(e.Sources)
	return &c
}

func cloneCase(m *types.ModerationCase) *types.ModerationCase {
	c := *m
	c.ReasonCodes = slices.Clone(m.ReasonCodes)
	if m.Resolution != nil {
		r := *m.Resolution
		c.Resolution = &r
	}
	return &c
}

func cloneHistory(h *types.CaseHistoryEntry) *types.CaseHistoryEntry {
	c := *h
	c.Details = maps.Clone(h.Details)
	return &c
}

func cloneAudit(l *types.ModerationAuditLog) *types.ModerationAuditLog {
	c := *l
	c.Details = maps.Clone(l.Details)
	if l.ReversedAt != nil {
		t := *l.ReversedAt
		c.ReversedAt = &t
	}
	return &c
}

func cloneAppeal(a *types.EnforcementAppeal) *types.EnforcementAppeal {
	c := *a
	if a.Outcome != nil {
		o := *a.Outcome
		c.Outcome = &o
	}
	return &c
}

func cloneApproval(a *types.SuspensionApproval) *types.SuspensionApproval {
	c := *a
	c.Approvers = slices.Clone(a.Approvers)
	if a.ApprovedAt != nil {
		t := *a.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}

func cloneDetection(d *types.RogueModeratorDetection) *types.RogueModeratorDetection {
	c := *d
	c.Patterns = slices.Clone(d.Patterns)
	return &c
}

func cloneAccount(s *types.AccountEnforcementState) *types.AccountEnforcementState {
	c := *s
	c.FeatureLocks = slices.Clone(s.FeatureLocks)
	return &c
}
