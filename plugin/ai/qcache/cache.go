// Package qcache is the feedback-driven answer cache: verified answers are
// promoted in, served back on near-identical queries, and demoted out when
// users keep flagging them. Deleting an entry cascades a human-review flag
// onto semantically related knowledge (propagated forgetting).
package qcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/mnemoslab/engram/plugin/ai"
	"github.com/mnemoslab/engram/store"
)

// HitSimilarityThreshold is the minimum query similarity for a cache hit.
const HitSimilarityThreshold = 0.95

// CacheStore is the slice of the store the cache needs.
type CacheStore interface {
	CreateCacheEntry(ctx context.Context, create *store.CreateCacheEntry) (*store.CacheEntry, error)
	GetCacheEntry(ctx context.Context, id string) (*store.CacheEntry, error)
	GetNearestCacheEntry(ctx context.Context, vector []float32, userID string) (*store.CacheEntry, float64, error)
	TouchCacheServe(ctx context.Context, id string) error
	AddCachePositiveFeedback(ctx context.Context, id string) error
	IncrementCacheNegativeFeedback(ctx context.Context, id string) (int, error)
	DeleteCacheEntry(ctx context.Context, id string) error
	SemanticSearch(ctx context.Context, opts *store.SemanticSearchOptions) ([]*store.SearchHit, error)
	CreateReviewQueueEntry(ctx context.Context, create *store.ReviewQueueEntry) (*store.ReviewQueueEntry, error)
}

// Cache is the quality-gated answer cache.
type Cache struct {
	store    CacheStore
	embedder ai.EmbeddingService
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Cache.
func New(cacheStore CacheStore, embedder ai.EmbeddingService, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:    cacheStore,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// Hit is a served cache entry.
type Hit struct {
	Entry      *store.CacheEntry
	Response   string
	Similarity float64
}

// Get returns a cached answer for the query, or nil on a miss. Failures
// (embedding, store) degrade to a miss rather than erroring: a broken cache
// must never fail the user's request.
func (c *Cache) Get(ctx context.Context, query, userID, requestedAgent string) *Hit {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		// A failed embedding is a clear miss; searching with a zero
		// vector would return meaningless neighbors.
		c.logger.WarnContext(ctx, "cache lookup degraded to miss: embedding failed", "error", err)
		return nil
	}

	entry, distance, err := c.store.GetNearestCacheEntry(ctx, vector, userID)
	if err != nil {
		c.logger.WarnContext(ctx, "cache lookup degraded to miss: store error", "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}

	similarity := 1 - distance
	if similarity < HitSimilarityThreshold {
		return nil
	}
	if entry.UserID != userID {
		return nil
	}
	if !IsValidForRequest(entry, requestedAgent, c.now()) {
		return nil
	}

	if err := c.store.TouchCacheServe(ctx, entry.ID); err != nil {
		c.logger.WarnContext(ctx, "failed to count cache serve", "entry_id", entry.ID, "error", err)
	}
	entry.ServeCount++

	c.logger.InfoContext(ctx, "cache hit",
		"entry_id", entry.ID,
		"user_id", userID,
		"similarity", similarity,
	)
	return &Hit{Entry: entry, Response: entry.Response, Similarity: similarity}
}

// Candidate is an answer proposed for promotion into the cache.
type Candidate struct {
	QueryText         string
	Response          string
	AgentUsed         string
	ContainsWebSearch bool
	QueryType         store.QueryType
	Confidence        float64
	UserVerified      bool
	UserID            string
	PrivacyLevel      store.PrivacyLevel
}

// PromoteResult reports whether a candidate entered the cache and why not
// otherwise. Refusals are results, not errors: callers must handle them.
type PromoteResult struct {
	Promoted bool
	Reason   string
	Entry    *store.CacheEntry
}

// Promotion refusal reasons.
const (
	ReasonPrivacyRefused       = "privacy_refused"
	ReasonEmbeddingUnavailable = "embedding_unavailable"
	ReasonStoreError           = "store_error"
)

// PromoteToCache stores a verified answer. Confidential and local-only
// content is refused outright; no error is raised and nothing is stored.
func (c *Cache) PromoteToCache(ctx context.Context, candidate *Candidate) *PromoteResult {
	if !candidate.PrivacyLevel.CacheSafe() {
		c.logger.InfoContext(ctx, "refused cache promotion",
			"user_id", candidate.UserID,
			"privacy_level", string(candidate.PrivacyLevel),
		)
		return &PromoteResult{Promoted: false, Reason: ReasonPrivacyRefused}
	}

	vector, err := c.embedder.Embed(ctx, candidate.QueryText)
	if err != nil {
		c.logger.WarnContext(ctx, "cache promotion skipped: embedding failed", "error", err)
		return &PromoteResult{Promoted: false, Reason: ReasonEmbeddingUnavailable}
	}

	entry, err := c.store.CreateCacheEntry(ctx, &store.CreateCacheEntry{
		QueryText:         candidate.QueryText,
		Embedding:         vector,
		Response:          candidate.Response,
		AgentUsed:         candidate.AgentUsed,
		ContainsWebSearch: candidate.ContainsWebSearch,
		QueryType:         candidate.QueryType,
		Confidence:        candidate.Confidence,
		UserVerified:      candidate.UserVerified,
		UserID:            candidate.UserID,
		PrivacyLevel:      candidate.PrivacyLevel,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "cache promotion failed", "error", err)
		return &PromoteResult{Promoted: false, Reason: ReasonStoreError}
	}
	return &PromoteResult{Promoted: true, Entry: entry}
}

// RecordPositiveFeedback counts a thumbs-up on a served entry.
func (c *Cache) RecordPositiveFeedback(ctx context.Context, entryID string) error {
	return c.store.AddCachePositiveFeedback(ctx, entryID)
}

// DemoteOutcome reports the effect of one negative feedback.
type DemoteOutcome struct {
	NegativeCount    int
	Deleted          bool
	ReviewCandidates []ReviewCandidate
}

// DemoteFromCache records negative feedback. Crossing the limit deletes the
// entry and collects review candidates for propagated forgetting; turning
// those into review queue rows is the separate EnqueueReviewCandidates step.
// The increment-and-compare is a single atomic store operation, so two
// concurrent demotions cannot both conclude "no deletion yet".
func (c *Cache) DemoteFromCache(ctx context.Context, entryID, reason string) (*DemoteOutcome, error) {
	entry, err := c.store.GetCacheEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &DemoteOutcome{}, nil
	}

	count, err := c.store.IncrementCacheNegativeFeedback(ctx, entryID)
	if err != nil {
		return nil, err
	}
	outcome := &DemoteOutcome{NegativeCount: count}
	if count <= MaxNegativeFeedback {
		c.logger.InfoContext(ctx, "cache entry demoted",
			"entry_id", entryID,
			"negative_count", count,
			"reason", reason,
		)
		return outcome, nil
	}

	if err := c.store.DeleteCacheEntry(ctx, entryID); err != nil {
		return nil, err
	}
	outcome.Deleted = true
	c.logger.InfoContext(ctx, "cache entry deleted after repeated negative feedback",
		"entry_id", entryID,
		"negative_count", count,
		"reason", reason,
	)

	// Collect, never delete: related knowledge is only flagged for a human.
	outcome.ReviewCandidates = c.collectReviewCandidates(ctx, entry)
	return outcome, nil
}
