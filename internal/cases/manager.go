// Package cases owns the lifecycle of moderation cases and their append-only history.
package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/queue"
	"go.uber.org/zap"
)

var (
	// ErrCaseNotFound is returned when a case does not exist.
	ErrCaseNotFound = types.ErrCaseNotFound
	// ErrInvalidTransition is returned when a case cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid case status transition")
	// ErrInvalidOutcome is returned when a resolution outcome is unknown.
	ErrInvalidOutcome = errors.New("invalid resolution outcome")
)

// errCaseClosed signals that a merge target stopped being open before it was locked.
var errCaseClosed = errors.New("case is no longer open")

// createAttempts bounds the insert/merge loop when creators race on the same subject.
const createAttempts = 3

// Store persists cases and their history.
type Store interface {
	CreateCase(ctx context.Context, c *types.ModerationCase) error
	GetCase(ctx context.Context, caseID string) (*types.ModerationCase, error)
	GetOpenCaseBySubject(ctx context.Context, subjectUserID string) (*types.ModerationCase, error)
	UpdateCase(ctx context.Context, caseID string, fn func(*types.ModerationCase) error) (*types.ModerationCase, error)
	ListCasesBySubject(ctx context.Context, subjectUserID string) ([]*types.ModerationCase, error)
	AppendCaseHistory(ctx context.Context, entry *types.CaseHistoryEntry) error
	GetCaseHistory(ctx context.Context, caseID string) ([]*types.CaseHistoryEntry, error)
}

// Scorer computes the confidence score of a subject.
type Scorer interface {
	Compute(ctx context.Context, userID string) (*types.EnforcementConfidence, error)
}

// LevelReader resolves the moderator level of a user.
type LevelReader interface {
	GetLevel(ctx context.Context, userID string) (int, error)
}

// ReviewQueue holds cases waiting for a human reviewer.
type ReviewQueue interface {
	Enqueue(ctx context.Context, item *queue.Item) error
	Remove(ctx context.Context, caseID string) error
}

// CriticalAlerter is told about newly opened critical cases.
type CriticalAlerter interface {
	AlertCriticalCase(ctx context.Context, c *types.ModerationCase)
}

// CreateRequest describes a new trigger against a subject.
type CreateRequest struct {
	SubjectUserID string
	ReasonCodes   []enum.ReasonCode
	OpenedBy      string        // "AUTO" or the moderator ID
	PriorityFloor enum.Priority // Lowest priority the case may have, empty for none
	Confidence    *float64      // Precomputed confidence, computed on demand when nil
}

// CreateResult is the case a trigger landed on.
type CreateResult struct {
	Case   *types.ModerationCase
	Merged bool // Whether the trigger was folded into an existing open case
	Queued bool // Whether the case is waiting for human review
}

// Resolution is the decision a reviewer records when closing a case.
type Resolution struct {
	Outcome    enum.ResolutionOutcome
	ReviewNote string
}

// Manager drives cases through their states.
type Manager struct {
	store   Store
	scorer  Scorer
	levels  LevelReader
	queue   ReviewQueue
	alerter CriticalAlerter
	logger  *zap.Logger
	now     func() time.Time
}

// NewManager creates a case manager.
func NewManager(
	store Store, scorer Scorer, levels LevelReader, queue ReviewQueue, alerter CriticalAlerter, logger *zap.Logger,
) *Manager {
	return &Manager{
		store:   store,
		scorer:  scorer,
		levels:  levels,
		queue:   queue,
		alerter: alerter,
		logger:  logger.Named("case_manager"),
		now:     time.Now,
	}
}

// WithClock replaces the manager clock.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create opens a case for the subject or merges the trigger into the subject's open case.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.OpenedBy == "" {
		req.OpenedBy = types.OpenedByAuto
	}

	var lastErr error
	for range createAttempts {
		existing, err := m.store.GetOpenCaseBySubject(ctx, req.SubjectUserID)
		switch {
		case err == nil:
			result, err := m.merge(ctx, existing.ID, req)
			if errors.Is(err, errCaseClosed) {
				lastErr = err
				continue
			}
			return result, err
		case !errors.Is(err, types.ErrCaseNotFound):
			return nil, fmt.Errorf("failed to look up open case: %w", err)
		}

		result, err := m.insert(ctx, req)
		if errors.Is(err, types.ErrOpenCaseExists) {
			// Another creator won the race; fold into its case on the next pass
			lastErr = err
			continue
		}
		return result, err
	}

	return nil, fmt.Errorf("failed to create case after %d attempts: %w", createAttempts, lastErr)
}

func (m *Manager) insert(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	var score float64
	if req.Confidence != nil {
		score = *req.Confidence
	} else {
		computed, err := m.scorer.Compute(ctx, req.SubjectUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to compute confidence: %w", err)
		}
		score = computed.Score
	}

	now := m.now()
	c := &types.ModerationCase{
		ID:            uuid.NewString(),
		SubjectUserID: req.SubjectUserID,
		Status:        enum.CaseStatusOpen,
		Priority:      Priority(req.ReasonCodes, score).Max(req.PriorityFloor),
		OpenedAt:      now,
		OpenedBy:      req.OpenedBy,
		ReasonCodes:   []enum.ReasonCode{},
		Confidence:    score,
		UpdatedAt:     now,
	}
	c.MergeReasons(req.ReasonCodes)

	if err := m.store.CreateCase(ctx, c); err != nil {
		return nil, err
	}

	m.appendHistory(ctx, c.ID, req.OpenedBy, enum.CaseActionCreated, map[string]any{
		"reasonCodes": c.ReasonCodes,
		"priority":    c.Priority,
		"confidence":  score,
	})

	queued := m.enqueueIfRequired(ctx, c)

	if c.Priority == enum.PriorityCritical && m.alerter != nil {
		m.alerter.AlertCriticalCase(ctx, c)
	}

	m.logger.Info("Opened case",
		zap.String("caseID", c.ID),
		zap.String("subjectUserID", c.SubjectUserID),
		zap.String("priority", string(c.Priority)),
		zap.Bool("queued", queued))

	return &CreateResult{Case: c, Queued: queued}, nil
}

func (m *Manager) merge(ctx context.Context, caseID string, req CreateRequest) (*CreateResult, error) {
	var (
		added        []enum.ReasonCode
		previousPrio enum.Priority
	)

	updated, err := m.store.UpdateCase(ctx, caseID, func(c *types.ModerationCase) error {
		if !c.Status.IsOpen() {
			return errCaseClosed
		}

		added = c.MergeReasons(req.ReasonCodes)
		previousPrio = c.Priority
		c.Priority = c.Priority.
			Max(Priority(c.ReasonCodes, c.Confidence)).
			Max(req.PriorityFloor)
		c.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrCaseNotFound) {
			return nil, errCaseClosed
		}
		return nil, err
	}

	m.appendHistory(ctx, updated.ID, req.OpenedBy, enum.CaseActionMerged, map[string]any{
		"addedReasonCodes": added,
		"priority":         updated.Priority,
	})

	queued := false
	if updated.Status == enum.CaseStatusOpen {
		queued = m.enqueueIfRequired(ctx, updated)
	}

	if updated.Priority == enum.PriorityCritical && previousPrio != enum.PriorityCritical && m.alerter != nil {
		m.alerter.AlertCriticalCase(ctx, updated)
	}

	m.logger.Debug("Merged trigger into open case",
		zap.String("caseID", updated.ID),
		zap.Any("addedReasonCodes", added))

	return &CreateResult{Case: updated, Merged: true, Queued: queued}, nil
}

// enqueueIfRequired hands the case to the review queue when a human must look at it.
// Queue failures are logged; the case itself is already durable.
func (m *Manager) enqueueIfRequired(ctx context.Context, c *types.ModerationCase) bool {
	if !RequiresReview(c.ReasonCodes, c.Confidence) {
		return false
	}

	err := m.queue.Enqueue(ctx, &queue.Item{
		CaseID:        c.ID,
		SubjectUserID: c.SubjectUserID,
		Priority:      c.Priority,
		Reasons:       c.ReasonCodes,
		Confidence:    c.Confidence,
		QueuedAt:      c.OpenedAt,
	})
	if err != nil {
		m.logger.Error("Failed to queue case for review",
			zap.String("caseID", c.ID),
			zap.Error(err))
		return false
	}

	m.appendHistory(ctx, c.ID, types.OpenedByAuto, enum.CaseActionQueued, map[string]any{
		"priority": c.Priority,
	})
	return true
}
