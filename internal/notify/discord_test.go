package notify_test

import (
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu       sync.Mutex
	channels []snowflake.ID
	messages []discord.MessageCreate
}

func (s *recordingSender) CreateMessage(
	channelID snowflake.ID, messageCreate discord.MessageCreate, _ ...rest.RequestOpt,
) (*discord.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channelID)
	s.messages = append(s.messages, messageCreate)
	return &discord.Message{}, nil
}

func TestAlertCriticalCase(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	alerter := notify.NewDiscordAlerterWithSender(sender, snowflake.ID(42), zap.NewNop())

	alerter.AlertCriticalCase(t.Context(), &types.ModerationCase{
		ID:            "case-1",
		SubjectUserID: "user-1",
		OpenedBy:      types.OpenedByAuto,
		ReasonCodes:   []enum.ReasonCode{enum.ReasonMinorSafety},
		Confidence:    0.91,
		OpenedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	require.Len(t, sender.messages, 1)
	assert.Equal(t, snowflake.ID(42), sender.channels[0])

	embeds := sender.messages[0].Embeds
	require.Len(t, embeds, 1)
	assert.Equal(t, "Critical Case Opened", embeds[0].Title)

	var reasons string
	for _, field := range embeds[0].Fields {
		if field.Name == "Reasons" {
			reasons = field.Value
		}
	}
	assert.Equal(t, "Minor Safety", reasons)
}

func TestAlertRogueModerator(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	alerter := notify.NewDiscordAlerterWithSender(sender, snowflake.ID(42), zap.NewNop())

	alerter.AlertRogueModerator(t.Context(), &types.RogueModeratorDetection{
		ModeratorID: "mod-1",
		Patterns: []types.RoguePatternMatch{
			{Type: enum.RoguePatternHighReversal, Description: "75% of actions reversed", Value: 0.75},
		},
		TotalActions:      20,
		ReversedActions:   15,
		FalsePositiveRate: 0.75,
		AutoSuspended:     true,
		DetectedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	require.Len(t, sender.messages, 1)
	embed := sender.messages[0].Embeds[0]
	assert.Contains(t, embed.Description, "High Reversal Rate")

	var action string
	for _, field := range embed.Fields {
		if field.Name == "Action Taken" {
			action = field.Value
		}
	}
	assert.Equal(t, "Moderator privileges suspended", action)
}
