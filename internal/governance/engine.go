// Package governance exposes the moderation operations of the engine.
//
// Moderator-initiated operations share one pipeline: the actor's level is checked
// against the permission matrix, the action is checked against the rate limiter, the
// action runs, it is counted against the limiter and an audit entry is appended.
package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/warden/internal/appeal"
	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/confidence"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/enforcement"
	"github.com/robalyx/warden/internal/notify"
	"github.com/robalyx/warden/internal/ratelimit"
	"github.com/robalyx/warden/internal/rogue"
	"github.com/robalyx/warden/internal/role"
	"github.com/robalyx/warden/internal/signal"
	"go.uber.org/zap"
)

// ErrRateLimited is returned when a moderator exceeded the limit for an action.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter bounds moderator actions.
type RateLimiter interface {
	Check(ctx context.Context, moderatorID string, action enum.ActionType) ratelimit.Result
	Record(ctx context.Context, moderatorID string, action enum.ActionType) error
}

// Options are the collaborators the engine is built from.
type Options struct {
	Stores    Stores
	Queue     cases.ReviewQueue
	Limiter   RateLimiter
	Notifier  notify.Dispatcher
	Alerter   notify.StaffAlerter
	Anomalies signal.AnomalyFeed // Optional
}

// Engine wires every component together.
type Engine struct {
	roles       *role.Service
	confidence  *confidence.Engine
	cases       *cases.Manager
	enforcement *enforcement.Dispatcher
	appeals     *appeal.Service
	rogue       *rogue.Detector
	limiter     RateLimiter
	audit       AuditStore
	accounts    enforcement.AccountStatusEngine
	logger      *zap.Logger
	now         func() time.Time
}

// New builds an engine and all of its components.
func New(opts Options, logger *zap.Logger) *Engine {
	s := opts.Stores

	roles := role.NewService(s.Roles, logger)
	scorer := confidence.NewEngine(s.Confidence, confidence.Sources{
		Profiles:  s.Profiles,
		Reports:   s.Reports,
		Anomalies: opts.Anomalies,
		Audit:     s.Audit,
		Cases:     s.Cases,
	}, logger)
	caseManager := cases.NewManager(s.Cases, scorer, roles, opts.Queue, opts.Alerter, logger)
	dispatcher := enforcement.NewDispatcher(s.Restrictions, s.Accounts, caseManager, scorer, opts.Notifier, logger)
	appeals := appeal.NewService(s.Appeals, s.Approvals, caseManager, roles, dispatcher, logger)
	detector := rogue.NewDetector(s.Audit, s.Detections, caseManager, roles, opts.Alerter, logger)

	return &Engine{
		roles:       roles,
		confidence:  scorer,
		cases:       caseManager,
		enforcement: dispatcher,
		appeals:     appeals,
		rogue:       detector,
		limiter:     opts.Limiter,
		audit:       s.Audit,
		accounts:    s.Accounts,
		logger:      logger.Named("governance"),
		now:         time.Now,
	}
}

// WithClock replaces the clock of the engine and every component.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	e.roles.WithClock(now)
	e.confidence.WithClock(now)
	e.cases.WithClock(now)
	e.enforcement.WithClock(now)
	e.appeals.WithClock(now)
	e.rogue.WithClock(now)
	return e
}

// Roles returns the role service.
func (e *Engine) Roles() *role.Service { return e.roles }

// Confidence returns the confidence engine.
func (e *Engine) Confidence() *confidence.Engine { return e.confidence }

// Cases returns the case manager.
func (e *Engine) Cases() *cases.Manager { return e.cases }

// Enforcement returns the enforcement dispatcher.
func (e *Engine) Enforcement() *enforcement.Dispatcher { return e.enforcement }

// Appeals returns the appeal service.
func (e *Engine) Appeals() *appeal.Service { return e.appeals }

// Rogue returns the rogue moderator detector.
func (e *Engine) Rogue() *rogue.Detector { return e.rogue }

// action describes a moderator-initiated action for authorization and auditing.
type action struct {
	actorID string
	level   int
	kind    enum.ActionType
}

// authorize checks the actor's level and rate limit for an action.
func (e *Engine) authorize(ctx context.Context, actorID string, kind enum.ActionType) (*action, error) {
	level, err := e.roles.GetLevel(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get moderator level: %w", err)
	}
	if err := role.Require(level, kind); err != nil {
		return nil, err
	}

	if result := e.limiter.Check(ctx, actorID, kind); !result.Allowed {
		return nil, fmt.Errorf("%w: %s, retry in %d minutes", ErrRateLimited, kind, result.RetryAfterMinutes)
	}

	return &action{actorID: actorID, level: level, kind: kind}, nil
}

// complete counts a performed action and appends its audit entry. The action already
// happened, so failures are logged and the entry ID is empty when the append failed.
func (e *Engine) complete(
	ctx context.Context, a *action, targetUserID, caseID string, details map[string]any,
) string {
	if err := e.limiter.Record(ctx, a.actorID, a.kind); err != nil {
		e.logger.Warn("Failed to record rate limited action",
			zap.String("actorID", a.actorID),
			zap.String("action", string(a.kind)),
			zap.Error(err))
	}

	permission, _ := role.Lookup(a.kind)
	entry := &types.ModerationAuditLog{
		ID:           uuid.NewString(),
		ActorID:      a.actorID,
		ActorLevel:   a.level,
		TargetUserID: targetUserID,
		ActionType:   a.kind,
		Reversible:   permission.Reversible,
		Restrictive:  permission.Restrictive,
		CaseID:       caseID,
		Details:      details,
		CreatedAt:    e.now(),
	}
	if err := e.audit.AppendAudit(ctx, entry); err != nil {
		e.logger.Error("Failed to append audit entry",
			zap.String("actorID", a.actorID),
			zap.String("action", string(a.kind)),
			zap.String("targetUserID", targetUserID),
			zap.Error(err))
		return ""
	}

	return entry.ID
}
