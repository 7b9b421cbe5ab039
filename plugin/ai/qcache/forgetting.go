package qcache

import (
	"context"

	"github.com/mnemoslab/engram/store"
)

// Cascade thresholds for propagated forgetting.
const (
	CascadeSimilarityThreshold     = 0.70
	CascadeMediumPriorityThreshold = 0.85

	maxKnowledgeCandidates   = 10
	maxInteractionCandidates = 5
)

// ReviewCandidate is a memory related to a deleted cache entry, proposed
// for human review.
type ReviewCandidate struct {
	EntryID          string
	Collection       string
	Similarity       float64
	SourceDeletionID string
	Reason           string
}

// collectReviewCandidates finds memories semantically close to a deleted
// cache entry. Every failure degrades to an empty or shorter candidate
// list; the cascade is best-effort and the deletion itself already stands.
func (c *Cache) collectReviewCandidates(ctx context.Context, deleted *store.CacheEntry) []ReviewCandidate {
	vector, err := c.embedder.Embed(ctx, deleted.QueryText)
	if err != nil {
		c.logger.WarnContext(ctx, "forgetting cascade skipped: embedding failed",
			"entry_id", deleted.ID,
			"error", err,
		)
		return nil
	}

	var candidates []ReviewCandidate
	for _, src := range []struct {
		collection string
		limit      int
	}{
		{store.CollectionKnowledge, maxKnowledgeCandidates},
		{store.CollectionInteractions, maxInteractionCandidates},
	} {
		hits, err := c.store.SemanticSearch(ctx, &store.SemanticSearchOptions{
			Collection: src.collection,
			Vector:     vector,
			// Over-fetch so cross-user rows dropped below still leave
			// enough same-user candidates.
			Limit: src.limit * 2,
		})
		if err != nil {
			c.logger.WarnContext(ctx, "forgetting cascade search failed",
				"collection", src.collection,
				"error", err,
			)
			continue
		}
		kept := 0
		for _, hit := range hits {
			if kept >= src.limit {
				break
			}
			similarity := 1 - hit.Distance
			if similarity < CascadeSimilarityThreshold {
				continue
			}
			if hit.Props.UserID != deleted.UserID {
				continue
			}
			candidates = append(candidates, ReviewCandidate{
				EntryID:          hit.ID,
				Collection:       src.collection,
				Similarity:       similarity,
				SourceDeletionID: deleted.ID,
				Reason:           "related_cache_entry_deleted",
			})
			kept++
		}
	}
	return candidates
}

// EnqueueReviewCandidates creates a pending review queue row per
// candidate. Partial failures are logged and skipped; the count of rows
// actually created is returned.
func (c *Cache) EnqueueReviewCandidates(ctx context.Context, candidates []ReviewCandidate) int {
	created := 0
	for _, candidate := range candidates {
		priority := store.ReviewPriorityLow
		if candidate.Similarity >= CascadeMediumPriorityThreshold {
			priority = store.ReviewPriorityMedium
		}
		_, err := c.store.CreateReviewQueueEntry(ctx, &store.ReviewQueueEntry{
			EntryID:          candidate.EntryID,
			EntryCollection:  candidate.Collection,
			Reason:           candidate.Reason,
			SourceDeletionID: candidate.SourceDeletionID,
			Priority:         priority,
			Status:           store.ReviewStatusPending,
		})
		if err != nil {
			c.logger.WarnContext(ctx, "failed to enqueue review candidate",
				"entry_id", candidate.EntryID,
				"error", err,
			)
			continue
		}
		created++
	}
	if created > 0 {
		c.logger.InfoContext(ctx, "flagged related memories for review", "count", created)
	}
	return created
}
