package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mnemoslab/engram/store"
)

// CreateQueryHistoryEntry records an answered query for a session.
func (d *DB) CreateQueryHistoryEntry(ctx context.Context, create *store.QueryHistoryEntry) (*store.QueryHistoryEntry, error) {
	entry := *create
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AskedAt.IsZero() {
		entry.AskedAt = time.Now()
	}

	stmt := `
		INSERT INTO query_history (id, session_id, user_id, question, asked_ts)
		VALUES (` + placeholders(5) + `)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		entry.ID,
		entry.SessionID,
		entry.UserID,
		entry.Question,
		entry.AskedAt.Unix(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create query history entry")
	}
	return &entry, nil
}

// ListQueryHistory lists a session's queries newest-first.
func (d *DB) ListQueryHistory(ctx context.Context, find *store.FindQueryHistory) ([]*store.QueryHistoryEntry, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, question, asked_ts
		FROM query_history
		WHERE session_id = $1 AND asked_ts >= $2
		ORDER BY asked_ts DESC
		LIMIT $3
	`, find.SessionID, find.Since.Unix(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list query history")
	}
	defer rows.Close()

	list := []*store.QueryHistoryEntry{}
	for rows.Next() {
		var (
			entry   store.QueryHistoryEntry
			askedTs int64
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.UserID, &entry.Question, &askedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan query history entry")
		}
		entry.AskedAt = time.Unix(askedTs, 0)
		list = append(list, &entry)
	}
	return list, rows.Err()
}

// ListUserTopics returns the user's high-confidence topic set, consulted by
// the triager's novelty signal.
func (d *DB) ListUserTopics(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT topic FROM user_topic
		WHERE user_id = $1 AND confidence >= 0.7
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user topics")
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, errors.Wrap(err, "failed to scan user topic")
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}
