package store

import (
	"context"

	"github.com/mnemoslab/engram/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// SemanticSearch performs vector similarity search over a collection.
func (s *Store) SemanticSearch(ctx context.Context, opts *SemanticSearchOptions) ([]*SearchHit, error) {
	return s.driver.SemanticSearch(ctx, opts)
}

func (s *Store) CreateCacheEntry(ctx context.Context, create *CreateCacheEntry) (*CacheEntry, error) {
	return s.driver.CreateCacheEntry(ctx, create)
}

func (s *Store) GetCacheEntry(ctx context.Context, id string) (*CacheEntry, error) {
	return s.driver.GetCacheEntry(ctx, id)
}

// GetNearestCacheEntry returns the closest cached answer for the user and
// its cosine distance to the query vector.
func (s *Store) GetNearestCacheEntry(ctx context.Context, vector []float32, userID string) (*CacheEntry, float64, error) {
	return s.driver.GetNearestCacheEntry(ctx, vector, userID)
}

func (s *Store) TouchCacheServe(ctx context.Context, id string) error {
	return s.driver.TouchCacheServe(ctx, id)
}

func (s *Store) AddCachePositiveFeedback(ctx context.Context, id string) error {
	return s.driver.AddCachePositiveFeedback(ctx, id)
}

func (s *Store) IncrementCacheNegativeFeedback(ctx context.Context, id string) (int, error) {
	return s.driver.IncrementCacheNegativeFeedback(ctx, id)
}

func (s *Store) DeleteCacheEntry(ctx context.Context, id string) error {
	return s.driver.DeleteCacheEntry(ctx, id)
}

func (s *Store) CreateReviewQueueEntry(ctx context.Context, create *ReviewQueueEntry) (*ReviewQueueEntry, error) {
	return s.driver.CreateReviewQueueEntry(ctx, create)
}

func (s *Store) ListReviewQueueEntries(ctx context.Context, find *FindReviewQueueEntry) ([]*ReviewQueueEntry, error) {
	return s.driver.ListReviewQueueEntries(ctx, find)
}

func (s *Store) UpdateReviewQueueStatus(ctx context.Context, id string, status ReviewStatus) error {
	return s.driver.UpdateReviewQueueStatus(ctx, id, status)
}

func (s *Store) CreateQueryHistoryEntry(ctx context.Context, create *QueryHistoryEntry) (*QueryHistoryEntry, error) {
	return s.driver.CreateQueryHistoryEntry(ctx, create)
}

func (s *Store) ListQueryHistory(ctx context.Context, find *FindQueryHistory) ([]*QueryHistoryEntry, error) {
	return s.driver.ListQueryHistory(ctx, find)
}

func (s *Store) ListUserTopics(ctx context.Context, userID string) ([]string, error) {
	return s.driver.ListUserTopics(ctx, userID)
}

func (s *Store) ListKnownEntities(ctx context.Context) ([]string, error) {
	return s.driver.ListKnownEntities(ctx)
}

func (s *Store) ListClusterCentroids(ctx context.Context) ([]*ClusterCentroid, error) {
	return s.driver.ListClusterCentroids(ctx)
}
