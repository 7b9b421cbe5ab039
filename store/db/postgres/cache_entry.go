package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/mnemoslab/engram/store"
)

const cacheEntryFields = `
	id, query_text, response, agent_used, contains_web_search, query_type,
	confidence, user_verified, positive_feedback_count, negative_feedback_count,
	user_id, privacy_level, created_ts, serve_count
`

// CreateCacheEntry inserts a promoted answer.
func (d *DB) CreateCacheEntry(ctx context.Context, create *store.CreateCacheEntry) (*store.CacheEntry, error) {
	entry := &store.CacheEntry{
		ID:                uuid.NewString(),
		QueryText:         create.QueryText,
		Response:          create.Response,
		AgentUsed:         create.AgentUsed,
		ContainsWebSearch: create.ContainsWebSearch,
		QueryType:         create.QueryType,
		Confidence:        create.Confidence,
		UserVerified:      create.UserVerified,
		UserID:            create.UserID,
		PrivacyLevel:      create.PrivacyLevel,
		CreatedAt:         time.Now(),
	}

	stmt := `
		INSERT INTO answer_cache (
			id, query_text, embedding, response, agent_used, contains_web_search,
			query_type, confidence, user_verified, user_id, privacy_level, created_ts
		)
		VALUES (` + placeholders(12) + `)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		entry.ID,
		entry.QueryText,
		pgvector.NewVector(create.Embedding),
		entry.Response,
		entry.AgentUsed,
		entry.ContainsWebSearch,
		string(entry.QueryType),
		entry.Confidence,
		entry.UserVerified,
		entry.UserID,
		string(entry.PrivacyLevel),
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cache entry")
	}
	return entry, nil
}

// GetCacheEntry returns a cache entry by id, or nil if absent.
func (d *DB) GetCacheEntry(ctx context.Context, id string) (*store.CacheEntry, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+cacheEntryFields+` FROM answer_cache WHERE id = $1`, id)
	entry, err := scanCacheEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// GetNearestCacheEntry returns the user's closest cached answer and its
// cosine distance, or nil when the user has no cached answers.
func (d *DB) GetNearestCacheEntry(ctx context.Context, vector []float32, userID string) (*store.CacheEntry, float64, error) {
	query := `
		SELECT ` + cacheEntryFields + `, embedding <=> $1 AS distance
		FROM answer_cache
		WHERE user_id = $2
		ORDER BY embedding <=> $1
		LIMIT 1
	`
	row := d.db.QueryRowContext(ctx, query, pgvector.NewVector(vector), userID)

	var (
		entry        store.CacheEntry
		queryType    string
		privacyLevel string
		createdTs    int64
		distance     float64
	)
	err := row.Scan(
		&entry.ID,
		&entry.QueryText,
		&entry.Response,
		&entry.AgentUsed,
		&entry.ContainsWebSearch,
		&queryType,
		&entry.Confidence,
		&entry.UserVerified,
		&entry.PositiveFeedbackCount,
		&entry.NegativeFeedbackCount,
		&entry.UserID,
		&privacyLevel,
		&createdTs,
		&entry.ServeCount,
		&distance,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to find nearest cache entry")
	}
	entry.QueryType = store.QueryType(queryType)
	entry.PrivacyLevel = store.ParsePrivacyLevel(privacyLevel)
	entry.CreatedAt = time.Unix(createdTs, 0)
	return &entry, distance, nil
}

// TouchCacheServe increments the serve counter.
func (d *DB) TouchCacheServe(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE answer_cache SET serve_count = serve_count + 1 WHERE id = $1`, id)
	return errors.Wrap(err, "failed to touch cache entry")
}

// AddCachePositiveFeedback increments the positive feedback counter.
func (d *DB) AddCachePositiveFeedback(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE answer_cache SET positive_feedback_count = positive_feedback_count + 1 WHERE id = $1`, id)
	return errors.Wrap(err, "failed to add positive feedback")
}

// IncrementCacheNegativeFeedback increments the negative feedback counter in
// a single UPDATE and returns the post-increment value. The read-modify-write
// happens inside one statement so concurrent demotions serialize on the row.
func (d *DB) IncrementCacheNegativeFeedback(ctx context.Context, id string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		UPDATE answer_cache
		SET negative_feedback_count = negative_feedback_count + 1
		WHERE id = $1
		RETURNING negative_feedback_count
	`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Errorf("cache entry %s not found", id)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to increment negative feedback")
	}
	return count, nil
}

// DeleteCacheEntry removes a cache entry.
func (d *DB) DeleteCacheEntry(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM answer_cache WHERE id = $1`, id)
	return errors.Wrap(err, "failed to delete cache entry")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCacheEntry(row rowScanner) (*store.CacheEntry, error) {
	var (
		entry        store.CacheEntry
		queryType    string
		privacyLevel string
		createdTs    int64
	)
	err := row.Scan(
		&entry.ID,
		&entry.QueryText,
		&entry.Response,
		&entry.AgentUsed,
		&entry.ContainsWebSearch,
		&queryType,
		&entry.Confidence,
		&entry.UserVerified,
		&entry.PositiveFeedbackCount,
		&entry.NegativeFeedbackCount,
		&entry.UserID,
		&privacyLevel,
		&createdTs,
		&entry.ServeCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan cache entry")
	}
	entry.QueryType = store.QueryType(queryType)
	entry.PrivacyLevel = store.ParsePrivacyLevel(privacyLevel)
	entry.CreatedAt = time.Unix(createdTs, 0)
	return &entry, nil
}
