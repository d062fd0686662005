package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// OutboxKey is the Redis list the delivery service consumes from.
const OutboxKey = "notifications:outbox"

// ErrUnknownLevel is returned for notification levels without fixed copy.
var ErrUnknownLevel = errors.New("unknown notification level")

// Message is the payload pushed to the outbox.
type Message struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Level     enum.NotificationLevel `json:"level"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Outbox queues notifications on a Redis list.
type Outbox struct {
	client rueidis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewOutbox creates an Outbox.
func NewOutbox(client rueidis.Client, logger *zap.Logger) *Outbox {
	return &Outbox{
		client: client,
		logger: logger.Named("notify_outbox"),
		now:    time.Now,
	}
}

// Notify implements Dispatcher.
func (o *Outbox) Notify(ctx context.Context, userID string, level enum.NotificationLevel) error {
	text, ok := CopyFor(level)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	payload, err := sonic.Marshal(&Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Level:     level,
		Title:     text.Title,
		Body:      text.Body,
		CreatedAt: o.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	cmd := o.client.B().Lpush().Key(OutboxKey).Element(string(payload)).Build()
	if err := o.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}

	o.logger.Debug("Queued notification",
		zap.String("userID", userID),
		zap.String("level", string(level)))

	return nil
}
