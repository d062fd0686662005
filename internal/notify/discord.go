package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/database/types"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

const (
	criticalEmbedColor = 0xE74C3C
	rogueEmbedColor    = 0xE67E22
)

// MessageSender is the part of the Discord REST API used for alerts.
type MessageSender interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// DiscordAlerter posts staff alerts as embeds in a Discord channel.
type DiscordAlerter struct {
	sender    MessageSender
	channelID snowflake.ID
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewDiscordAlerter creates an alerter that talks to Discord with a bot token.
func NewDiscordAlerter(token string, channelID uint64, logger *zap.Logger) *DiscordAlerter {
	return NewDiscordAlerterWithSender(rest.New(rest.NewClient(token)), snowflake.ID(channelID), logger)
}

// NewDiscordAlerterWithSender creates an alerter over an existing sender.
// Alerts are paced to one every two seconds with a burst of five.
func NewDiscordAlerterWithSender(sender MessageSender, channelID snowflake.ID, logger *zap.Logger) *DiscordAlerter {
	return &DiscordAlerter{
		sender:    sender,
		channelID: channelID,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 5),
		logger:    logger.Named("staff_alerts"),
	}
}

// AlertCriticalCase implements StaffAlerter.
func (a *DiscordAlerter) AlertCriticalCase(ctx context.Context, c *types.ModerationCase) {
	caser := cases.Title(language.English)
	reasons := make([]string, 0, len(c.ReasonCodes))
	for _, code := range c.ReasonCodes {
		reasons = append(reasons, label(caser, string(code)))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "None")
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("Critical Case Opened").
		SetDescription(fmt.Sprintf("Case `%s` needs immediate review.", c.ID)).
		AddField("Subject", fmt.Sprintf("`%s`", c.SubjectUserID), true).
		AddField("Opened By", fmt.Sprintf("`%s`", c.OpenedBy), true).
		AddField("Confidence", fmt.Sprintf("%.2f", c.Confidence), true).
		AddField("Reasons", strings.Join(reasons, ", "), false).
		SetColor(criticalEmbedColor).
		SetTimestamp(c.OpenedAt).
		Build()

	a.send(ctx, embed, zap.String("caseID", c.ID))
}

// AlertRogueModerator implements StaffAlerter.
func (a *DiscordAlerter) AlertRogueModerator(ctx context.Context, detection *types.RogueModeratorDetection) {
	caser := cases.Title(language.English)
	patterns := make([]string, 0, len(detection.Patterns))
	for _, p := range detection.Patterns {
		patterns = append(patterns, fmt.Sprintf("**%s**: %s", label(caser, string(p.Type)), p.Description))
	}

	action := "Flagged for review"
	if detection.AutoSuspended {
		action = "Moderator privileges suspended"
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("Suspicious Moderator Activity").
		SetDescription(strings.Join(patterns, "\n")).
		AddField("Moderator", fmt.Sprintf("`%s`", detection.ModeratorID), true).
		AddField("Actions", fmt.Sprintf("%d (%d reversed)", detection.TotalActions, detection.ReversedActions), true).
		AddField("False Positive Rate", fmt.Sprintf("%.0f%%", detection.FalsePositiveRate*100), true).
		AddField("Action Taken", action, false).
		SetColor(rogueEmbedColor).
		SetTimestamp(detection.DetectedAt).
		Build()

	a.send(ctx, embed, zap.String("moderatorID", detection.ModeratorID))
}

// send posts an embed. Failures are logged only.
func (a *DiscordAlerter) send(ctx context.Context, embed discord.Embed, field zap.Field) {
	if err := a.limiter.Wait(ctx); err != nil {
		a.logger.Warn("Dropped staff alert", field, zap.Error(err))
		return
	}

	_, err := a.sender.CreateMessage(a.channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		a.logger.Error("Failed to send staff alert", field, zap.Error(err))
	}
}

// label turns a snake_case enum value into a title-cased label.
// Casers are stateful so each alert builds its own.
func label(caser cases.Caser, value string) string {
	return caser.String(strings.ReplaceAll(value, "_", " "))
}
