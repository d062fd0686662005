// Package ratelimit bounds how often a moderator may perform each action type.
//
// Every (moderator, action) pair owns a Redis hash holding the count and the bounds of
// the current fixed window. The window opens on the first recorded action and lapses
// when its end passes, after which the next action opens a fresh one.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

const (
	// KeyPrefix namespaces the window hashes. Keys are formatted as
	// "ratelimit:{moderatorID}:{actionType}".
	KeyPrefix = "ratelimit:"

	fieldCount     = "count"
	fieldWindowEnd = "window_end"

	// Unlimited is the remaining count reported for actions without a limit.
	Unlimited = -1
)

// Limit is the number of actions allowed per window.
type Limit struct {
	Count  int
	Window time.Duration
}

// Limits are the per-action limits. Actions not listed are unlimited.
var Limits = map[enum.ActionType]Limit{ //nolint:gochecknoglobals // -
	enum.ActionFlagUser:                   {Count: 50, Window: time.Hour},
	enum.ActionHideContent:                {Count: 30, Window: time.Hour},
	enum.ActionApplyVisibilityRestriction: {Count: 10, Window: time.Hour},
	enum.ActionApplyPostingRestriction:    {Count: 10, Window: time.Hour},
	enum.ActionFullEnforcement:            {Count: 5, Window: time.Hour},
	enum.ActionSubmitAppeal:               {Count: 10, Window: 24 * time.Hour},
	enum.ActionAssignCase:                 {Count: 100, Window: time.Hour},
	enum.ActionResolveCase:                {Count: 50, Window: time.Hour},
	enum.ActionReviewAppeal:               {Count: 50, Window: time.Hour},
	enum.ActionEscalateCase:               {Count: 50, Window: time.Hour},
	enum.ActionClaimAppeal:                {Count: 50, Window: time.Hour},
	enum.ActionReverseAction:              {Count: 20, Window: time.Hour},
	enum.ActionRequestSuspension:          {Count: 3, Window: 24 * time.Hour},
	enum.ActionApproveSuspension:          {Count: 10, Window: 24 * time.Hour},
	enum.ActionAssignRole:                 {Count: 20, Window: 24 * time.Hour},
	enum.ActionLiftRestriction:            {Count: 20, Window: time.Hour},
}

// recordLua opens a new window when the current one has lapsed and counts the
// action otherwise. The key expires with its window.
const recordLua = `
local now = tonumber(ARGV[1])
local windowEnd = tonumber(redis.call('HGET', KEYS[1], 'window_end') or '0')
if windowEnd <= now then
	redis.call('HSET', KEYS[1], 'count', '1', 'window_start', ARGV[1], 'window_end', ARGV[3])
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return 1
end
return redis.call('HINCRBY', KEYS[1], 'count', 1)
`

var recordScript = rueidis.NewLuaScript(recordLua) //nolint:gochecknoglobals // -

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed           bool
	Remaining         int // Unlimited when the action has no limit
	RetryAfterMinutes int // Minutes until the window ends when denied
}

// Limiter checks and records moderator actions in Redis.
type Limiter struct {
	client rueidis.Client
	limits map[enum.ActionType]Limit
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a rate limiter using the default limits.
func NewLimiter(client rueidis.Client, logger *zap.Logger) *Limiter {
	return &Limiter{
		client: client,
		limits: Limits,
		logger: logger.Named("rate_limiter"),
		now:    time.Now,
	}
}

// WithClock replaces the limiter clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// WithLimits replaces the limit table.
func (l *Limiter) WithLimits(limits map[enum.ActionType]Limit) *Limiter {
	l.limits = limits
	return l
}

// Key returns the window hash key for a moderator action.
func Key(moderatorID string, action enum.ActionType) string {
	return KeyPrefix + moderatorID + ":" + string(action)
}

// Check reports whether the moderator may perform the action now. It does not count
// the action. Any failure to read the window allows the action.
func (l *Limiter) Check(ctx context.Context, moderatorID string, action enum.ActionType) Result {
	limit, ok := l.limits[action]
	if !ok {
		return Result{Allowed: true, Remaining: Unlimited}
	}
	fresh := Result{Allowed: true, Remaining: limit.Count}

	fields, err := l.client.Do(ctx, l.client.B().Hgetall().Key(Key(moderatorID, action)).Build()).AsStrMap()
	if err != nil {
		l.logger.Warn("Rate limit check failed, allowing action",
			zap.String("moderatorID", moderatorID),
			zap.String("action", string(action)),
			zap.Error(err))
		return fresh
	}
	if len(fields) == 0 {
		return fresh
	}

	count, countErr := strconv.Atoi(fields[fieldCount])
	windowEnd, endErr := strconv.ParseInt(fields[fieldWindowEnd], 10, 64)
	if countErr != nil || endErr != nil {
		l.logger.Warn("Malformed rate limit window, allowing action",
			zap.String("moderatorID", moderatorID),
			zap.String("action", string(action)),
			zap.Any("fields", fields))
		return fresh
	}

	now := l.now().UnixMilli()
	if windowEnd <= now {
		return fresh
	}

	if count >= limit.Count {
		return Result{
			Allowed:           false,
			Remaining:         0,
			RetryAfterMinutes: int(math.Ceil(float64(windowEnd-now) / float64(time.Minute.Milliseconds()))),
		}
	}

	return Result{Allowed: true, Remaining: limit.Count - count}
}

// Record counts one action against the moderator's current window.
func (l *Limiter) Record(ctx context.Context, moderatorID string, action enum.ActionType) error {
	limit, ok := l.limits[action]
	if !ok {
		return nil
	}

	now := l.now().UnixMilli()
	resp := recordScript.Exec(ctx, l.client, []string{Key(moderatorID, action)}, []string{
		strconv.FormatInt(now, 10),
		strconv.FormatInt(limit.Window.Milliseconds(), 10),
		strconv.FormatInt(now+limit.Window.Milliseconds(), 10),
	})
	if err := resp.Error(); err != nil {
		return fmt.Errorf("failed to record rate limited action: %w", err)
	}

	return nil
}
