// Package retrieval issues vector-similarity queries against the logical
// memory collections and returns filtered, unranked candidates.
package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lithammer/shortuuid/v4"

	"github.com/mnemoslab/engram/store"
)

// overFetchFactor controls how many candidates are pulled per source before
// privacy filtering trims them down.
const overFetchFactor = 2

// SemanticSearcher is the slice of the store the retriever needs.
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, opts *store.SemanticSearchOptions) ([]*store.SearchHit, error)
}

// AccessFilter decides whether the requesting user may see a memory.
type AccessFilter interface {
	Allowed(level store.PrivacyLevel, ownerID, requestingUser string) bool
}

// OwnerOnlyFilter is the default access policy: users see their own
// memories at any level, and public memories of others.
type OwnerOnlyFilter struct{}

func (OwnerOnlyFilter) Allowed(level store.PrivacyLevel, ownerID, requestingUser string) bool {
	if ownerID == requestingUser {
		return true
	}
	return level == store.PrivacyPublic
}

// Options describes one retrieval request.
type Options struct {
	Query          string
	QueryEmbedding []float32
	UserID         string
	PrivacyLevels  []store.PrivacyLevel // empty means all levels pass the level check
	Limit          int
	Sources        []string // logical collections; defaults to knowledge
	RequestID      string
	Logger         *slog.Logger
}

// Retriever fetches candidates from the memory collections.
type Retriever struct {
	searcher SemanticSearcher
	filter   AccessFilter
}

// New creates a Retriever. A nil filter falls back to OwnerOnlyFilter.
func New(searcher SemanticSearcher, filter AccessFilter) *Retriever {
	if filter == nil {
		filter = OwnerOnlyFilter{}
	}
	return &Retriever{searcher: searcher, filter: filter}
}

// Retrieve fetches up to opts.Limit candidates across the requested sources,
// sorted by distance ascending. A failing source is logged and skipped;
// partial results from the remaining sources are still returned.
func (r *Retriever) Retrieve(ctx context.Context, opts *Options) ([]*store.RawResult, error) {
	if opts == nil {
		return []*store.RawResult{}, nil
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestID == "" {
		opts.RequestID = shortuuid.New()
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if len(opts.Sources) == 0 {
		opts.Sources = []string{store.CollectionKnowledge}
	}

	// Nothing to search with: return empty without touching the backend.
	if opts.Query == "" || len(opts.QueryEmbedding) == 0 {
		return []*store.RawResult{}, nil
	}

	type sourceResult struct {
		source string
		hits   []*store.SearchHit
		err    error
	}

	resultCh := make(chan sourceResult, len(opts.Sources))
	for _, source := range opts.Sources {
		go func(source string) {
			hits, err := r.searcher.SemanticSearch(ctx, &store.SemanticSearchOptions{
				Collection: source,
				Vector:     opts.QueryEmbedding,
				Limit:      opts.Limit * overFetchFactor,
			})
			select {
			case <-ctx.Done():
			case resultCh <- sourceResult{source: source, hits: hits, err: err}:
			}
		}(source)
	}

	merged := make([]*store.RawResult, 0, opts.Limit*overFetchFactor)
	for range opts.Sources {
		var res sourceResult
		select {
		case <-ctx.Done():
			return merged, ctx.Err()
		case res = <-resultCh:
		}

		if res.err != nil {
			opts.Logger.WarnContext(ctx, "source retrieval failed, continuing with partial results",
				"request_id", opts.RequestID,
				"source", res.source,
				"error", res.err,
			)
			continue
		}
		for _, hit := range res.hits {
			if !r.admit(hit, opts) {
				continue
			}
			merged = append(merged, &store.RawResult{
				ID:       hit.ID,
				Content:  hit.Content,
				Distance: hit.Distance,
				Source:   res.source,
				Props:    hit.Props,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	if len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}

	opts.Logger.InfoContext(ctx, "retrieval completed",
		"request_id", opts.RequestID,
		"user_id", opts.UserID,
		"source_count", len(opts.Sources),
		"result_count", len(merged),
	)
	return merged, nil
}

// admit applies the privacy-level allowlist and the access filter.
func (r *Retriever) admit(hit *store.SearchHit, opts *Options) bool {
	if len(opts.PrivacyLevels) > 0 {
		allowed := false
		for _, level := range opts.PrivacyLevels {
			if hit.Props.PrivacyLevel == level {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return r.filter.Allowed(hit.Props.PrivacyLevel, hit.Props.UserID, opts.UserID)
}
