package triage

import (
	"context"
	"strings"
	"time"

	"github.com/mnemoslab/engram/store"
)

// followUpWindow is how far back a session query still counts as the
// predecessor of a follow-up.
const followUpWindow = 30 * time.Minute

// HistoryStore is the slice of the store the checkers need.
type HistoryStore interface {
	ListQueryHistory(ctx context.Context, find *store.FindQueryHistory) ([]*store.QueryHistoryEntry, error)
	ListUserTopics(ctx context.Context, userID string) ([]string, error)
}

// StoreFollowUpChecker detects follow-ups from persisted session history.
type StoreFollowUpChecker struct {
	store HistoryStore
	now   func() time.Time
}

// NewStoreFollowUpChecker creates a follow-up checker over query history.
func NewStoreFollowUpChecker(s HistoryStore) *StoreFollowUpChecker {
	return &StoreFollowUpChecker{store: s, now: time.Now}
}

// IsFollowUp reports whether the session already asked something within the
// follow-up window.
func (c *StoreFollowUpChecker) IsFollowUp(ctx context.Context, record *QueryRecord) (bool, error) {
	if record.SessionID == "" {
		return false, nil
	}
	entries, err := c.store.ListQueryHistory(ctx, &store.FindQueryHistory{
		SessionID: record.SessionID,
		Since:     c.now().Add(-followUpWindow),
		Limit:     5,
	})
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		// The record itself may already be persisted.
		if entry.Question != record.Question {
			return true, nil
		}
	}
	return false, nil
}

// StoreNoveltyChecker detects topics absent from the user's high-confidence
// topic set.
type StoreNoveltyChecker struct {
	store HistoryStore
}

// NewStoreNoveltyChecker creates a novelty checker over the topic set.
func NewStoreNoveltyChecker(s HistoryStore) *StoreNoveltyChecker {
	return &StoreNoveltyChecker{store: s}
}

// IsNovelTopic reports whether the topic is missing from the user's
// established topics.
func (c *StoreNoveltyChecker) IsNovelTopic(ctx context.Context, userID, topic string) (bool, error) {
	topics, err := c.store.ListUserTopics(ctx, userID)
	if err != nil {
		return false, err
	}
	needle := strings.ToLower(strings.TrimSpace(topic))
	for _, known := range topics {
		if strings.ToLower(strings.TrimSpace(known)) == needle {
			return false, nil
		}
	}
	return true, nil
}
