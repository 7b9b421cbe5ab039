package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Vector search over a logical collection.
	SemanticSearch(ctx context.Context, opts *SemanticSearchOptions) ([]*SearchHit, error)

	// Answer cache rows.
	CreateCacheEntry(ctx context.Context, create *CreateCacheEntry) (*CacheEntry, error)
	GetCacheEntry(ctx context.Context, id string) (*CacheEntry, error)
	GetNearestCacheEntry(ctx context.Context, vector []float32, userID string) (*CacheEntry, float64, error)
	TouchCacheServe(ctx context.Context, id string) error
	AddCachePositiveFeedback(ctx context.Context, id string) error
	// IncrementCacheNegativeFeedback atomically increments the counter and
	// returns the new value, so two concurrent demotions can never both
	// observe the pre-increment count.
	IncrementCacheNegativeFeedback(ctx context.Context, id string) (int, error)
	DeleteCacheEntry(ctx context.Context, id string) error

	// Review queue rows created by propagated forgetting.
	CreateReviewQueueEntry(ctx context.Context, create *ReviewQueueEntry) (*ReviewQueueEntry, error)
	ListReviewQueueEntries(ctx context.Context, find *FindReviewQueueEntry) ([]*ReviewQueueEntry, error)
	UpdateReviewQueueStatus(ctx context.Context, id string, status ReviewStatus) error

	// Session query history consulted for triage signals.
	CreateQueryHistoryEntry(ctx context.Context, create *QueryHistoryEntry) (*QueryHistoryEntry, error)
	ListQueryHistory(ctx context.Context, find *FindQueryHistory) ([]*QueryHistoryEntry, error)
	ListUserTopics(ctx context.Context, userID string) ([]string, error)

	// Preflight index source data.
	ListKnownEntities(ctx context.Context) ([]string, error)
	ListClusterCentroids(ctx context.Context) ([]*ClusterCentroid, error)
}
