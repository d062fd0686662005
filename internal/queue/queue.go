// Package queue holds cases waiting for a human reviewer in Redis.
//
// Each priority tier is a sorted set of case IDs scored by the time the case was queued,
// so reviewers drain critical work first and oldest first within a tier. Item payloads
// live in a single hash keyed by case ID.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

const (
	// ItemsKey is the hash mapping case IDs to their encoded queue items.
	ItemsKey = "review_queue:items"
	// KeyPrefix namespaces the per-priority sorted sets.
	// Keys are formatted as "review_queue:{priority}".
	KeyPrefix = "review_queue:"
)

// Item is a case waiting for human review.
type Item struct {
	CaseID        string            `json:"caseId"`
	SubjectUserID string            `json:"subjectUserId"`
	Priority      enum.Priority     `json:"priority"`
	Reasons       []enum.ReasonCode `json:"reasons"`
	Confidence    float64           `json:"confidence"`
	QueuedAt      time.Time         `json:"queuedAt"`
}

// Manager stores review queue items in Redis.
type Manager struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewManager creates a review queue manager.
func NewManager(client rueidis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		logger: logger.Named("review_queue"),
	}
}

// Key returns the sorted set key for a priority tier.
func Key(priority enum.Priority) string {
	return KeyPrefix + string(priority)
}

// Enqueue adds a case to the queue of its priority. A case that is already queued keeps
// its original position when the priority is unchanged and moves tiers otherwise.
func (m *Manager) Enqueue(ctx context.Context, item *Item) error {
	itemJSON, err := sonic.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	cmds := make(rueidis.Commands, 0, len(enum.Priorities)+1)
	cmds = append(cmds, m.client.B().Hset().Key(ItemsKey).FieldValue().
		FieldValue(item.CaseID, string(itemJSON)).Build())
	for _, priority := range enum.Priorities {
		if priority == item.Priority {
			continue
		}
		cmds = append(cmds, m.client.B().Zrem().Key(Key(priority)).Member(item.CaseID).Build())
	}
	cmds = append(cmds, m.client.B().Zadd().Key(Key(item.Priority)).Nx().ScoreMember().
		ScoreMember(float64(item.QueuedAt.Unix()), item.CaseID).Build())

	for _, resp := range m.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to enqueue case: %w", err)
		}
	}

	m.logger.Debug("Queued case for review",
		zap.String("caseID", item.CaseID),
		zap.String("priority", string(item.Priority)))

	return nil
}

// Remove drops a case from every priority tier.
func (m *Manager) Remove(ctx context.Context, caseID string) error {
	cmds := make(rueidis.Commands, 0, len(enum.Priorities)+1)
	cmds = append(cmds, m.client.B().Hdel().Key(ItemsKey).Field(caseID).Build())
	for _, priority := range enum.Priorities {
		cmds = append(cmds, m.client.B().Zrem().Key(Key(priority)).Member(caseID).Build())
	}

	for _, resp := range m.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to remove case from queue: %w", err)
		}
	}

	return nil
}

// Get returns the queue item for a case.
func (m *Manager) Get(ctx context.Context, caseID string) (*Item, error) {
	raw, err := m.client.Do(ctx, m.client.B().Hget().Key(ItemsKey).Field(caseID).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}

	var item Item
	if err := sonic.UnmarshalString(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return &item, nil
}

// Length returns the number of cases waiting in a priority tier.
func (m *Manager) Length(ctx context.Context, priority enum.Priority) int {
	count, err := m.client.Do(ctx, m.client.B().Zcard().Key(Key(priority)).Build()).ToInt64()
	if err != nil {
		m.logger.Error("Failed to get queue length", zap.Error(err))
		return 0
	}
	return int(count)
}

// Peek returns up to limit items, highest priority first and oldest first within a tier.
func (m *Manager) Peek(ctx context.Context, limit int) ([]*Item, error) {
	items := make([]*Item, 0, limit)

	for _, priority := range enum.Priorities {
		remaining := limit - len(items)
		if remaining <= 0 {
			break
		}

		caseIDs, err := m.client.Do(ctx, m.client.B().Zrange().Key(Key(priority)).
			Min("0").Max(strconv.Itoa(remaining-1)).Build()).AsStrSlice()
		if err != nil {
			return nil, fmt.Errorf("failed to get queue items: %w", err)
		}

		for _, caseID := range caseIDs {
			item, err := m.Get(ctx, caseID)
			if err != nil {
				if errors.Is(err, ErrItemNotFound) {
					continue
				}
				return nil, err
			}
			items = append(items, item)
		}
	}

	return items, nil
}
