// Package notify delivers enforcement notices to users and alerts to staff.
package notify

import (
	"context"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
)

// Dispatcher tells a user that enforcement was applied to their account.
type Dispatcher interface {
	Notify(ctx context.Context, userID string, level enum.NotificationLevel) error
}

// StaffAlerter raises alerts for moderators on staff channels.
type StaffAlerter interface {
	AlertCriticalCase(ctx context.Context, c *types.ModerationCase)
	AlertRogueModerator(ctx context.Context, detection *types.RogueModeratorDetection)
}

// Copy is the fixed text shown to users. It never names moderators, reporters
// or anything else about how the decision was reached.
type Copy struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

const (
	softTitle      = "Your account visibility has been limited"
	softBody       = "Some of your activity may appear less often to other members while your account is reviewed."
	hardTitle      = "Your account has been restricted"
	hardBody       = "Your profile is hidden and posting is paused while your account is reviewed."
	suspendedTitle = "Your account is under review"
	suspendedBody  = "Your account has been restricted pending review. You can appeal once the review is complete."
)

// CopyFor returns the fixed copy for a notification level.
func CopyFor(level enum.NotificationLevel) (Copy, bool) {
	switch level {
	case enum.NotificationSoft:
		return Copy{Title: softTitle, Body: softBody}, true
	case enum.NotificationHard:
		return Copy{Title: hardTitle, Body: hardBody}, true
	case enum.NotificationSuspended:
		return Copy{Title: suspendedTitle, Body: suspendedBody}, true
	default:
		return Copy{}, false
	}
}

// NopDispatcher drops every notification.
type NopDispatcher struct{}

// Notify implements Dispatcher.
func (NopDispatcher) Notify(context.Context, string, enum.NotificationLevel) error { return nil }

// NopAlerter drops every staff alert.
type NopAlerter struct{}

// AlertCriticalCase implements StaffAlerter.
func (NopAlerter) AlertCriticalCase(context.Context, *types.ModerationCase) {}

// AlertRogueModerator implements StaffAlerter.
func (NopAlerter) AlertRogueModerator(context.Context, *types.RogueModeratorDetection) {}
