package confidence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/signal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Store persists computed confidence scores.
type Store interface {
	SaveConfidence(ctx context.Context, confidence *types.EnforcementConfidence) error
}

// AuditReader reads the moderator actions taken against a user.
type AuditReader interface {
	ListAuditByTarget(ctx context.Context, targetUserID string, since time.Time) ([]*types.ModerationAuditLog, error)
}

// CaseReader reads the cases opened against a user.
type CaseReader interface {
	ListCasesBySubject(ctx context.Context, subjectUserID string) ([]*types.ModerationCase, error)
}

// Sources groups the readers the engine pulls signals from.
type Sources struct {
	Profiles  signal.TrustProfileReader
	Reports   signal.ReportStore
	Anomalies signal.AnomalyFeed
	Audit     AuditReader
	Cases     CaseReader
}

// Engine computes and stores enforcement confidence scores.
type Engine struct {
	store   Store
	sources Sources
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a confidence engine.
func NewEngine(store Store, sources Sources, logger *zap.Logger) *Engine {
	if sources.Anomalies == nil {
		sources.Anomalies = signal.NopFeed{}
	}
	return &Engine{
		store:   store,
		sources: sources,
		logger:  logger.Named("confidence_engine"),
		now:     time.Now,
	}
}

// WithClock replaces the engine clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Compute gathers every source for a user, scores them and stores the result.
// A failing source counts as no signal; only a failure to store the result is returned.
func (e *Engine) Compute(ctx context.Context, userID string) (*types.EnforcementConfidence, error) {
	scores := e.collect(ctx, userID)
	score, sources := Score(scores)

	result := &types.EnforcementConfidence{
		UserID:       userID,
		Score:        score,
		Sources:      sources,
		CalculatedAt: e.now(),
	}
	if result.Sources == nil {
		result.Sources = []types.ConfidenceSource{}
	}

	if err := e.store.SaveConfidence(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save confidence: %w", err)
	}

	e.logger.Debug("Computed confidence",
		zap.String("userID", userID),
		zap.Float64("score", score),
		zap.Int("sources", len(sources)))

	return result, nil
}

// collect fetches every source concurrently.
func (e *Engine) collect(ctx context.Context, userID string) []SourceScore {
	now := e.now()
	signalSince := now.Add(-SignalWindow)

	var (
		profile   *types.TrustProfile
		reporters int
		events    []*types.AnomalyEvent
		entries   []*types.ModerationAuditLog
		cases     []*types.ModerationCase
	)

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		profile, err = e.sources.Profiles.GetTrustProfile(ctx, userID)
		if err != nil && !errors.Is(err, types.ErrTrustProfileNotFound) {
			e.logSourceError("trust profile", userID, err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		reporters, err = e.sources.Reports.CountUniqueReporters(ctx, userID, signalSince)
		if err != nil {
			e.logSourceError("user reports", userID, err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		events, err = e.sources.Anomalies.ListAnomalies(ctx, userID, now.Add(-AnomalyWindow))
		if err != nil {
			e.logSourceError("anomaly feed", userID, err)
			events = nil
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		entries, err = e.sources.Audit.ListAuditByTarget(ctx, userID, signalSince)
		if err != nil {
			e.logSourceError("audit log", userID, err)
			entries = nil
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		cases, err = e.sources.Cases.ListCasesBySubject(ctx, userID)
		if err != nil {
			e.logSourceError("case history", userID, err)
			cases = nil
		}
		return nil
	})
	_ = p.Wait()

	var aiFlags, profileFlags int
	if profile != nil {
		aiFlags = profile.AIFlags
		profileFlags = profile.CommunityFlags
	}
	moderatorFlags, trustedActions := auditCounts(entries)

	return []SourceScore{
		{Type: enum.SourceAIScan, Score: AIScanScore(aiFlags), Timestamp: now},
		{Type: enum.SourceTrustedModAction, Score: TrustedModActionScore(trustedActions), Timestamp: now},
		{Type: enum.SourceCommunityFlag, Score: CommunityFlagScore(profileFlags, moderatorFlags), Timestamp: now},
		{Type: enum.SourceUserReport, Score: UserReportScore(reporters), Timestamp: now},
		{Type: enum.SourceViolationHistory, Score: ViolationHistoryScore(cases), Timestamp: now},
		{Type: enum.SourceAnomalyDetection, Score: AnomalyScore(events), Timestamp: now},
	}
}

func (e *Engine) logSourceError(source, userID string, err error) {
	e.logger.Warn("Confidence source failed, treating as no signal",
		zap.String("source", source),
		zap.String("userID", userID),
		zap.Error(err))
}
