// Package rogue analyzes moderator behavior for signs of abused privileges.
package rogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

const (
	// AnalysisWindow is how far back audit entries are considered.
	AnalysisWindow = 7 * 24 * time.Hour
	// DedupWindow is the minimum time between two detections of the same moderator.
	DedupWindow = 24 * time.Hour
	// SuspendRate is the false positive rate above which a moderator is suspended.
	SuspendRate = 0.5
	// SuspendPatterns is the pattern count at which a moderator is suspended.
	SuspendPatterns = 3
)

// AuditReader lists the actions taken by a moderator.
type AuditReader interface {
	ListAuditByActor(ctx context.Context, actorID string, since time.Time) ([]*types.ModerationAuditLog, error)
}

// DetectionStore persists detections.
type DetectionStore interface {
	CreateDetection(ctx context.Context, detection *types.RogueModeratorDetection) error
	GetLatestDetection(ctx context.Context, moderatorID string) (*types.RogueModeratorDetection, error)
}

// CaseOpener opens cases against suspicious moderators.
type CaseOpener interface {
	Create(ctx context.Context, req cases.CreateRequest) (*cases.CreateResult, error)
}

// Suspender strips moderator roles.
type Suspender interface {
	SuspendModerator(ctx context.Context, moderatorID, reason, caseID string) error
}

// Alerter notifies staff about detections.
type Alerter interface {
	AlertRogueModerator(ctx context.Context, detection *types.RogueModeratorDetection)
}

// Detector analyzes moderators and acts on suspicious ones.
type Detector struct {
	audit      AuditReader
	detections DetectionStore
	cases      CaseOpener
	suspender  Suspender
	alerter    Alerter
	logger     *zap.Logger
	now        func() time.Time
}

// NewDetector creates a rogue moderator detector.
func NewDetector(
	audit AuditReader, detections DetectionStore, cases CaseOpener, suspender Suspender, alerter Alerter,
	logger *zap.Logger,
) *Detector {
	return &Detector{
		audit:      audit,
		detections: detections,
		cases:      cases,
		suspender:  suspender,
		alerter:    alerter,
		logger:     logger.Named("rogue_detector"),
		now:        time.Now,
	}
}

// WithClock replaces the detector clock.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Analyze checks a moderator's recent actions. When a pattern fires and the moderator
// was not flagged in the last day, it opens a critical case, suspends the moderator if
// the evidence is strong enough and records the detection. It returns nil when nothing
// was recorded.
func (d *Detector) Analyze(ctx context.Context, moderatorID string) (*types.RogueModeratorDetection, error) {
	now := d.now()

	entries, err := d.audit.ListAuditByActor(ctx, moderatorID, now.Add(-AnalysisWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	stats := Summarize(entries)
	matches := stats.Match()
	if len(matches) == 0 {
		return nil, nil
	}

	latest, err := d.detections.GetLatestDetection(ctx, moderatorID)
	switch {
	case err == nil:
		if latest.DetectedAt.After(now.Add(-DedupWindow)) {
			d.logger.Debug("Skipping recently detected moderator",
				zap.String("moderatorID", moderatorID),
				zap.Time("lastDetectedAt", latest.DetectedAt))
			return nil, nil
		}
	case !errors.Is(err, types.ErrDetectionNotFound):
		return nil, fmt.Errorf("failed to get latest detection: %w", err)
	}

	result, err := d.cases.Create(ctx, cases.CreateRequest{
		SubjectUserID: moderatorID,
		ReasonCodes:   []enum.ReasonCode{enum.ReasonGovernanceBypass},
		OpenedBy:      types.OpenedByAuto,
		PriorityFloor: enum.PriorityCritical,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open governance case: %w", err)
	}

	detection := &types.RogueModeratorDetection{
		ID:                uuid.NewString(),
		ModeratorID:       moderatorID,
		Patterns:          matches,
		TotalActions:      stats.Total,
		ReversedActions:   stats.Reversed,
		FalsePositiveRate: stats.FalsePositiveRate(),
		CaseID:            result.Case.ID,
		DetectedAt:        now,
	}

	if detection.FalsePositiveRate > SuspendRate || len(matches) >= SuspendPatterns {
		reason := fmt.Sprintf("automatic suspension: %d suspicious patterns, %.0f%% of actions reversed",
			len(matches), detection.FalsePositiveRate*100)
		if err := d.suspender.SuspendModerator(ctx, moderatorID, reason, result.Case.ID); err != nil {
			return nil, fmt.Errorf("failed to suspend moderator: %w", err)
		}
		detection.AutoSuspended = true
	}

	if err := d.detections.CreateDetection(ctx, detection); err != nil {
		return nil, fmt.Errorf("failed to store detection: %w", err)
	}

	d.alerter.AlertRogueModerator(ctx, detection)

	d.logger.Warn("Detected suspicious moderator",
		zap.String("moderatorID", moderatorID),
		zap.Int("patterns", len(matches)),
		zap.Float64("falsePositiveRate", detection.FalsePositiveRate),
		zap.Bool("autoSuspended", detection.AutoSuspended),
		zap.String("caseID", detection.CaseID))

	return detection, nil
}
