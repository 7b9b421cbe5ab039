package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mnemoslab/engram/store"
)

// CreateReviewQueueEntry inserts a pending review flag.
func (d *DB) CreateReviewQueueEntry(ctx context.Context, create *store.ReviewQueueEntry) (*store.ReviewQueueEntry, error) {
	entry := *create
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = store.ReviewStatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	stmt := `
		INSERT INTO knowledge_review_queue (
			id, entry_id, entry_collection, reason, source_deletion_id, priority, status, created_ts
		)
		VALUES (` + placeholders(8) + `)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		entry.ID,
		entry.EntryID,
		entry.EntryCollection,
		entry.Reason,
		entry.SourceDeletionID,
		string(entry.Priority),
		string(entry.Status),
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create review queue entry")
	}
	return &entry, nil
}

// ListReviewQueueEntries lists review queue entries.
func (d *DB) ListReviewQueueEntries(ctx context.Context, find *store.FindReviewQueueEntry) ([]*store.ReviewQueueEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, string(*find.Status))
	}
	if find.SourceDeletionID != nil {
		where, args = append(where, "source_deletion_id = "+placeholder(len(args)+1)), append(args, *find.SourceDeletionID)
	}

	query := `
		SELECT id, entry_id, entry_collection, reason, source_deletion_id, priority, status, created_ts
		FROM knowledge_review_queue
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list review queue entries")
	}
	defer rows.Close()

	list := []*store.ReviewQueueEntry{}
	for rows.Next() {
		var (
			entry     store.ReviewQueueEntry
			priority  string
			status    string
			createdTs int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.EntryID,
			&entry.EntryCollection,
			&entry.Reason,
			&entry.SourceDeletionID,
			&priority,
			&status,
			&createdTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan review queue entry")
		}
		entry.Priority = store.ReviewPriority(priority)
		entry.Status = store.ReviewStatus(status)
		entry.CreatedAt = time.Unix(createdTs, 0)
		list = append(list, &entry)
	}
	return list, rows.Err()
}

// UpdateReviewQueueStatus transitions a pending entry. Only pending entries
// may move; a second reviewer decision is rejected.
func (d *DB) UpdateReviewQueueStatus(ctx context.Context, id string, status store.ReviewStatus) error {
	result, err := d.db.ExecContext(ctx, `
		UPDATE knowledge_review_queue
		SET status = $1
		WHERE id = $2 AND status = $3
	`, string(status), id, string(store.ReviewStatusPending))
	if err != nil {
		return errors.Wrap(err, "failed to update review queue status")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check review queue update")
	}
	if affected == 0 {
		return errors.Errorf("review queue entry %s is not pending", id)
	}
	return nil
}
