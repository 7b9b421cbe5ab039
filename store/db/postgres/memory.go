package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/mnemoslab/engram/store"
)

// SemanticSearch performs vector similarity search over a logical collection.
// Distance is cosine distance as computed by pgvector's <=> operator.
func (d *DB) SemanticSearch(ctx context.Context, opts *store.SemanticSearchOptions) ([]*store.SearchHit, error) {
	if opts == nil || len(opts.Vector) == 0 {
		return nil, errors.New("missing query vector")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, content, embedding <=> $1 AS distance,
			user_id, privacy_level, created_ts,
			importance, crs_score, confidence_score,
			feedback_score, usage_count, validated
		FROM memory_entry
		WHERE collection = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(opts.Vector), opts.Collection, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory entries")
	}
	defer rows.Close()

	hits := []*store.SearchHit{}
	for rows.Next() {
		hit, err := scanSearchHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate memory entries")
	}
	return hits, nil
}

// scanSearchHit validates one row into the typed property struct. Nullable
// metadata columns become nil pointers rather than zero values so that the
// ranker can distinguish "absent" from "0".
func scanSearchHit(rows *sql.Rows) (*store.SearchHit, error) {
	var (
		hit          store.SearchHit
		privacyLevel string
		createdTs    sql.NullInt64
		importance   sql.NullFloat64
		crsScore     sql.NullFloat64
		confidence   sql.NullFloat64
		feedback     sql.NullFloat64
		usageCount   sql.NullInt64
		validated    sql.NullBool
	)
	if err := rows.Scan(
		&hit.ID,
		&hit.Content,
		&hit.Distance,
		&hit.Props.UserID,
		&privacyLevel,
		&createdTs,
		&importance,
		&crsScore,
		&confidence,
		&feedback,
		&usageCount,
		&validated,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan memory entry")
	}

	hit.Props.PrivacyLevel = store.ParsePrivacyLevel(privacyLevel)
	if createdTs.Valid {
		t := time.Unix(createdTs.Int64, 0)
		hit.Props.CreatedAt = &t
	}
	// First present of importance, crs_score, confidence_score.
	switch {
	case importance.Valid:
		hit.Props.Importance = &importance.Float64
	case crsScore.Valid:
		hit.Props.Importance = &crsScore.Float64
	case confidence.Valid:
		hit.Props.Importance = &confidence.Float64
	}
	if feedback.Valid {
		hit.Props.FeedbackScore = &feedback.Float64
	}
	if usageCount.Valid {
		n := int(usageCount.Int64)
		hit.Props.UsageCount = &n
	}
	if validated.Valid {
		hit.Props.Validated = &validated.Bool
	}
	return &hit, nil
}

// ListKnownEntities returns the entity names backing the preflight index.
func (d *DB) ListKnownEntities(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM known_entity ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list known entities")
	}
	defer rows.Close()

	entities := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan entity")
		}
		entities = append(entities, name)
	}
	return entities, rows.Err()
}

// ListClusterCentroids returns the per-topic centroid vectors.
func (d *DB) ListClusterCentroids(ctx context.Context) ([]*store.ClusterCentroid, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, centroid FROM topic_cluster WHERE centroid IS NOT NULL`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cluster centroids")
	}
	defer rows.Close()

	centroids := []*store.ClusterCentroid{}
	for rows.Next() {
		var (
			c      store.ClusterCentroid
			vector pgvector.Vector
		)
		if err := rows.Scan(&c.Name, &vector); err != nil {
			return nil, errors.Wrap(err, "failed to scan cluster centroid")
		}
		c.Centroid = vector.Slice()
		centroids = append(centroids, &c)
	}
	return centroids, rows.Err()
}
