package qcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemoslab/engram/plugin/ai"
	"github.com/mnemoslab/engram/store"
)

type fakeCacheStore struct {
	entries map[string]*store.CacheEntry

	nearest         *store.CacheEntry
	nearestDistance float64
	nearestErr      error

	searchHits map[string][]*store.SearchHit
	searchErr  error

	reviewEntries []*store.ReviewQueueEntry
	reviewErr     error

	touched []string
	deleted []string
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{
		entries:    map[string]*store.CacheEntry{},
		searchHits: map[string][]*store.SearchHit{},
	}
}

func (f *fakeCacheStore) CreateCacheEntry(_ context.Context, create *store.CreateCacheEntry) (*store.CacheEntry, error) {
	entry := &store.CacheEntry{
		ID:                "entry-" + create.QueryText,
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
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakeCacheStore) GetCacheEntry(_ context.Context, id string) (*store.CacheEntry, error) {
	return f.entries[id], nil
}

func (f *fakeCacheStore) GetNearestCacheEntry(_ context.Context, _ []float32, _ string) (*store.CacheEntry, float64, error) {
	if f.nearestErr != nil {
		return nil, 0, f.nearestErr
	}
	return f.nearest, f.nearestDistance, nil
}

func (f *fakeCacheStore) TouchCacheServe(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeCacheStore) AddCachePositiveFeedback(_ context.Context, id string) error {
	if entry, ok := f.entries[id]; ok {
		entry.PositiveFeedbackCount++
	}
	return nil
}

func (f *fakeCacheStore) IncrementCacheNegativeFeedback(_ context.Context, id string) (int, error) {
	entry, ok := f.entries[id]
	if !ok {
		return 0, errors.New("entry not found")
	}
	entry.NegativeFeedbackCount++
	return entry.NegativeFeedbackCount, nil
}

func (f *fakeCacheStore) DeleteCacheEntry(_ context.Context, id string) error {
	delete(f.entries, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCacheStore) SemanticSearch(_ context.Context, opts *store.SemanticSearchOptions) ([]*store.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits[opts.Collection], nil
}

func (f *fakeCacheStore) CreateReviewQueueEntry(_ context.Context, create *store.ReviewQueueEntry) (*store.ReviewQueueEntry, error) {
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	f.reviewEntries = append(f.reviewEntries, create)
	return create, nil
}

func freshEntry(userID string) *store.CacheEntry {
	return &store.CacheEntry{
		ID:         "e1",
		QueryText:  "what is a goroutine",
		Response:   "a lightweight thread managed by the Go runtime",
		AgentUsed:  "general",
		QueryType:  store.QueryTypeFactual,
		Confidence: 0.9,
		UserID:     userID,
		CreatedAt:  time.Now().Add(-1 * time.Hour),
	}
}

func TestQualityScore(t *testing.T) {
	t.Run("ConfidenceOnly", func(t *testing.T) {
		entry := &store.CacheEntry{Confidence: 0.7}
		assert.InDelta(t, 0.7, QualityScore(entry), 1e-9)
	})

	t.Run("VerifiedBonus", func(t *testing.T) {
		entry := &store.CacheEntry{Confidence: 0.7, UserVerified: true}
		assert.InDelta(t, 0.8, QualityScore(entry), 1e-9)
	})

	t.Run("PositiveFeedbackCapped", func(t *testing.T) {
		entry := &store.CacheEntry{Confidence: 0.6, PositiveFeedbackCount: 3}
		assert.InDelta(t, 0.66, QualityScore(entry), 1e-9)

		entry.PositiveFeedbackCount = 20
		assert.InDelta(t, 0.7, QualityScore(entry), 1e-9)
	})

	t.Run("CappedAtOne", func(t *testing.T) {
		entry := &store.CacheEntry{Confidence: 0.98, UserVerified: true, PositiveFeedbackCount: 10}
		assert.Equal(t, 1.0, QualityScore(entry))
	})

	t.Run("ZeroPastNegativeLimit", func(t *testing.T) {
		entry := &store.CacheEntry{Confidence: 0.95, UserVerified: true, NegativeFeedbackCount: 3}
		assert.Equal(t, 0.0, QualityScore(entry))
	})
}

func TestTTLHours(t *testing.T) {
	tests := []struct {
		name  string
		entry *store.CacheEntry
		want  float64
	}{
		{"Definition", &store.CacheEntry{QueryType: store.QueryTypeDefinition}, 168},
		{"Factual", &store.CacheEntry{QueryType: store.QueryTypeFactual}, 24},
		{"Code", &store.CacheEntry{QueryType: store.QueryTypeCode}, 24},
		{"TemporalNeverServed", &store.CacheEntry{QueryType: store.QueryTypeTemporal}, 0},
		{"CreativeNeverServed", &store.CacheEntry{QueryType: store.QueryTypeCreative}, 0},
		{"UnknownFallsBackToFactual", &store.CacheEntry{QueryType: "MYSTERY"}, 24},
		{"WebSearchOverridesCategory", &store.CacheEntry{QueryType: store.QueryTypeDefinition, ContainsWebSearch: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TTLHours(tt.entry))
		})
	}
}

func TestIsValidForRequest(t *testing.T) {
	now := time.Now()

	t.Run("FreshHighQuality", func(t *testing.T) {
		entry := freshEntry("u1")
		assert.True(t, IsValidForRequest(entry, "", now))
		assert.True(t, IsValidForRequest(entry, "auto", now))
		assert.True(t, IsValidForRequest(entry, "general", now))
	})

	t.Run("AgentMismatch", func(t *testing.T) {
		entry := freshEntry("u1")
		assert.False(t, IsValidForRequest(entry, "coder", now))
	})

	t.Run("LowQuality", func(t *testing.T) {
		entry := freshEntry("u1")
		entry.Confidence = 0.4
		assert.False(t, IsValidForRequest(entry, "", now))
	})

	t.Run("ZeroTTLCategory", func(t *testing.T) {
		entry := freshEntry("u1")
		entry.QueryType = store.QueryTypeTemporal
		assert.False(t, IsValidForRequest(entry, "", now))
	})

	t.Run("Expired", func(t *testing.T) {
		entry := freshEntry("u1")
		entry.CreatedAt = now.Add(-25 * time.Hour)
		assert.False(t, IsValidForRequest(entry, "", now))

		entry.QueryType = store.QueryTypeDefinition
		assert.True(t, IsValidForRequest(entry, "", now))
	})
}

func TestCacheGet(t *testing.T) {
	ctx := context.Background()
	embedder := &ai.MockEmbedder{Default: []float32{0.1, 0.2}, Dim: 2}

	t.Run("Hit", func(t *testing.T) {
		st := newFakeCacheStore()
		st.nearest = freshEntry("u1")
		st.nearestDistance = 0.02
		cache := New(st, embedder, nil)

		hit := cache.Get(ctx, "what is a goroutine", "u1", "auto")
		require.NotNil(t, hit)
		assert.Equal(t, st.nearest.Response, hit.Response)
		assert.InDelta(t, 0.98, hit.Similarity, 1e-9)
		assert.Equal(t, []string{"e1"}, st.touched)
	})

	t.Run("MissBelowSimilarityThreshold", func(t *testing.T) {
		st := newFakeCacheStore()
		st.nearest = freshEntry("u1")
		st.nearestDistance = 0.06
		cache := New(st, embedder, nil)

		assert.Nil(t, cache.Get(ctx, "what is a goroutine", "u1", "auto"))
		assert.Empty(t, st.touched)
	})

	t.Run("MissWrongUser", func(t *testing.T) {
		st := newFakeCacheStore()
		st.nearest = freshEntry("u2")
		st.nearestDistance = 0.01
		cache := New(st, embedder, nil)

		assert.Nil(t, cache.Get(ctx, "what is a goroutine", "u1", "auto"))
	})

	t.Run("MissExpired", func(t *testing.T) {
		st := newFakeCacheStore()
		entry := freshEntry("u1")
		entry.CreatedAt = time.Now().Add(-48 * time.Hour)
		st.nearest = entry
		st.nearestDistance = 0.01
		cache := New(st, embedder, nil)

		assert.Nil(t, cache.Get(ctx, "what is a goroutine", "u1", "auto"))
	})

	t.Run("MissEmptyCache", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, embedder, nil)

		assert.Nil(t, cache.Get(ctx, "anything", "u1", "auto"))
	})

	t.Run("EmbeddingFailureIsMiss", func(t *testing.T) {
		st := newFakeCacheStore()
		st.nearest = freshEntry("u1")
		cache := New(st, &ai.MockEmbedder{Err: ai.ErrEmbeddingUnavailable}, nil)

		assert.Nil(t, cache.Get(ctx, "what is a goroutine", "u1", "auto"))
	})

	t.Run("StoreFailureIsMiss", func(t *testing.T) {
		st := newFakeCacheStore()
		st.nearestErr = errors.New("connection reset")
		cache := New(st, embedder, nil)

		assert.Nil(t, cache.Get(ctx, "what is a goroutine", "u1", "auto"))
	})
}

func TestPromoteToCache(t *testing.T) {
	ctx := context.Background()
	embedder := &ai.MockEmbedder{Default: []float32{0.1, 0.2}, Dim: 2}

	candidate := func(level store.PrivacyLevel) *Candidate {
		return &Candidate{
			QueryText:    "what is a channel",
			Response:     "a typed conduit for goroutine communication",
			AgentUsed:    "general",
			QueryType:    store.QueryTypeDefinition,
			Confidence:   0.85,
			UserID:       "u1",
			PrivacyLevel: level,
		}
	}

	t.Run("Promoted", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, embedder, nil)

		result := cache.PromoteToCache(ctx, candidate(store.PrivacyPublic))
		require.True(t, result.Promoted)
		require.NotNil(t, result.Entry)
		assert.Len(t, st.entries, 1)
	})

	t.Run("ConfidentialRefused", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, embedder, nil)

		result := cache.PromoteToCache(ctx, candidate(store.PrivacyConfidential))
		assert.False(t, result.Promoted)
		assert.Equal(t, ReasonPrivacyRefused, result.Reason)
		assert.Empty(t, st.entries)
	})

	t.Run("LocalOnlyRefused", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, embedder, nil)

		result := cache.PromoteToCache(ctx, candidate(store.PrivacyLocalOnly))
		assert.False(t, result.Promoted)
		assert.Equal(t, ReasonPrivacyRefused, result.Reason)
	})

	t.Run("EmbeddingFailure", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, &ai.MockEmbedder{Err: ai.ErrEmbeddingUnavailable}, nil)

		result := cache.PromoteToCache(ctx, candidate(store.PrivacyPublic))
		assert.False(t, result.Promoted)
		assert.Equal(t, ReasonEmbeddingUnavailable, result.Reason)
	})
}

func TestDemoteFromCache(t *testing.T) {
	ctx := context.Background()
	embedder := &ai.MockEmbedder{Default: []float32{0.1, 0.2}, Dim: 2}

	t.Run("BelowLimitKeepsEntry", func(t *testing.T) {
		st := newFakeCacheStore()
		st.entries["e1"] = freshEntry("u1")
		cache := New(st, embedder, nil)

		outcome, err := cache.DemoteFromCache(ctx, "e1", "outdated")
		require.NoError(t, err)
		assert.Equal(t, 1, outcome.NegativeCount)
		assert.False(t, outcome.Deleted)

		outcome, err = cache.DemoteFromCache(ctx, "e1", "outdated")
		require.NoError(t, err)
		assert.Equal(t, 2, outcome.NegativeCount)
		assert.False(t, outcome.Deleted)
		assert.Empty(t, st.deleted)
	})

	t.Run("ThirdDemotionDeletes", func(t *testing.T) {
		st := newFakeCacheStore()
		entry := freshEntry("u1")
		entry.NegativeFeedbackCount = 2
		st.entries["e1"] = entry
		cache := New(st, embedder, nil)

		outcome, err := cache.DemoteFromCache(ctx, "e1", "wrong")
		require.NoError(t, err)
		assert.Equal(t, 3, outcome.NegativeCount)
		assert.True(t, outcome.Deleted)
		assert.Equal(t, []string{"e1"}, st.deleted)
	})

	t.Run("UnknownEntryIsNoop", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, embedder, nil)

		outcome, err := cache.DemoteFromCache(ctx, "missing", "wrong")
		require.NoError(t, err)
		assert.Equal(t, 0, outcome.NegativeCount)
		assert.False(t, outcome.Deleted)
	})
}

func TestForgettingCascade(t *testing.T) {
	ctx := context.Background()
	embedder := &ai.MockEmbedder{Default: []float32{0.1, 0.2}, Dim: 2}

	hit := func(id, userID string, distance float64) *store.SearchHit {
		return &store.SearchHit{
			ID:       id,
			Distance: distance,
			Props:    store.MemoryProperties{UserID: userID},
		}
	}

	setup := func() (*fakeCacheStore, *Cache) {
		st := newFakeCacheStore()
		entry := freshEntry("u1")
		entry.NegativeFeedbackCount = 2
		st.entries["e1"] = entry
		return st, New(st, embedder, nil)
	}

	t.Run("CollectsRelatedSameUserMemories", func(t *testing.T) {
		st, cache := setup()
		st.searchHits[store.CollectionKnowledge] = []*store.SearchHit{
			hit("k1", "u1", 0.10), // sim 0.90 -> medium
			hit("k2", "u2", 0.05), // wrong user
			hit("k3", "u1", 0.20), // sim 0.80 -> low
			hit("k4", "u1", 0.40), // below cascade threshold
		}
		st.searchHits[store.CollectionInteractions] = []*store.SearchHit{
			hit("r1", "u1", 0.12),
		}

		outcome, err := cache.DemoteFromCache(ctx, "e1", "wrong")
		require.NoError(t, err)
		require.True(t, outcome.Deleted)
		require.Len(t, outcome.ReviewCandidates, 3)

		assert.Equal(t, "k1", outcome.ReviewCandidates[0].EntryID)
		assert.Equal(t, store.CollectionKnowledge, outcome.ReviewCandidates[0].Collection)
		assert.Equal(t, "e1", outcome.ReviewCandidates[0].SourceDeletionID)
		assert.Equal(t, "k3", outcome.ReviewCandidates[1].EntryID)
		assert.Equal(t, "r1", outcome.ReviewCandidates[2].EntryID)
		assert.Equal(t, store.CollectionInteractions, outcome.ReviewCandidates[2].Collection)
	})

	t.Run("CapsCandidatesPerCollection", func(t *testing.T) {
		st, cache := setup()
		for i := 0; i < 30; i++ {
			st.searchHits[store.CollectionKnowledge] = append(
				st.searchHits[store.CollectionKnowledge], hit("k", "u1", 0.05))
			st.searchHits[store.CollectionInteractions] = append(
				st.searchHits[store.CollectionInteractions], hit("r", "u1", 0.05))
		}

		outcome, err := cache.DemoteFromCache(ctx, "e1", "wrong")
		require.NoError(t, err)
		assert.Len(t, outcome.ReviewCandidates, maxKnowledgeCandidates+maxInteractionCandidates)
	})

	t.Run("EmbeddingFailureSkipsCascade", func(t *testing.T) {
		st := newFakeCacheStore()
		entry := freshEntry("u1")
		entry.NegativeFeedbackCount = 2
		st.entries["e1"] = entry
		cache := New(st, &ai.MockEmbedder{Err: ai.ErrEmbeddingUnavailable}, nil)

		outcome, err := cache.DemoteFromCache(ctx, "e1", "wrong")
		require.NoError(t, err)
		assert.True(t, outcome.Deleted)
		assert.Empty(t, outcome.ReviewCandidates)
	})

	t.Run("EnqueueCreatesPendingRows", func(t *testing.T) {
		st := newFakeCacheStore()
		cache := New(st, embedder, nil)

		created := cache.EnqueueReviewCandidates(ctx, []ReviewCandidate{
			{EntryID: "k1", Collection: store.CollectionKnowledge, Similarity: 0.90, SourceDeletionID: "e1", Reason: "related_cache_entry_deleted"},
			{EntryID: "k3", Collection: store.CollectionKnowledge, Similarity: 0.80, SourceDeletionID: "e1", Reason: "related_cache_entry_deleted"},
		})
		assert.Equal(t, 2, created)
		require.Len(t, st.reviewEntries, 2)
		assert.Equal(t, store.ReviewPriorityMedium, st.reviewEntries[0].Priority)
		assert.Equal(t, store.ReviewPriorityLow, st.reviewEntries[1].Priority)
		for _, row := range st.reviewEntries {
			assert.Equal(t, store.ReviewStatusPending, row.Status)
		}
	})

	t.Run("EnqueuePartialFailure", func(t *testing.T) {
		st := newFakeCacheStore()
		st.reviewErr = errors.New("insert failed")
		cache := New(st, embedder, nil)

		created := cache.EnqueueReviewCandidates(ctx, []ReviewCandidate{
			{EntryID: "k1", Similarity: 0.90},
		})
		assert.Equal(t, 0, created)
	})
}
