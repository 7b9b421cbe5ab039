package store

import (
	"time"
)

// Well-known logical collections searched by the retrieval pipeline.
const (
	CollectionKnowledge    = "knowledge"
	CollectionInteractions = "raw_interactions"
	CollectionAnswerCache  = "answer_cache"
)

// MemoryProperties is the typed view of a memory row's metadata.
// Rows are validated into this struct at the driver boundary so that
// ranking and context assembly never touch untyped property bags.
type MemoryProperties struct {
	UserID       string
	PrivacyLevel PrivacyLevel
	CreatedAt    *time.Time // nil when the row carries no usable timestamp

	// Importance is the first present of importance, crs_score and
	// confidence_score on the stored row.
	Importance *float64

	FeedbackScore *float64
	UsageCount    *int
	Validated     *bool
}

// RawResult is a single unranked candidate returned by vector search.
type RawResult struct {
	ID       string
	Content  string
	Distance float64 // cosine distance in [0,1]
	Source   string  // collection the candidate came from
	Props    MemoryProperties
}

// Similarity converts the stored distance into a similarity score.
func (r *RawResult) Similarity() float64 {
	s := 1 - r.Distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// SearchHit is the raw driver-level result of a vector similarity query.
type SearchHit struct {
	ID       string
	Content  string
	Distance float64
	Props    MemoryProperties
}

// SemanticSearchOptions represents the options for vector search.
type SemanticSearchOptions struct {
	Collection string
	Vector     []float32
	Limit      int
}

// ClusterCentroid is the mean embedding of one topic cluster, used by the
// preflight feeling-of-knowing check.
type ClusterCentroid struct {
	Name     string
	Centroid []float32
}
