// Package preflight implements the feeling-of-knowing check: a cheap
// estimate of whether relevant knowledge exists for a query, used to decide
// whether full retrieval is worth running at all.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/sync/singleflight"

	"github.com/mnemoslab/engram/store"
)

// Signal is the preflight verdict.
type Signal string

const (
	SignalLikely    Signal = "LIKELY"
	SignalUnlikely  Signal = "UNLIKELY"
	SignalUncertain Signal = "UNCERTAIN"
)

// Confidence cut-points for the verdict.
const (
	LikelyThreshold   = 0.7
	UnlikelyThreshold = 0.3

	// CentroidGate is the minimum centroid similarity that contributes
	// to confidence.
	CentroidGate = 0.5

	bloomFalsePositiveRate = 0.01
)

var (
	// ErrNotInitialized is a programming error: Initialize must run before Check.
	ErrNotInitialized = errors.New("preflight checker not initialized")

	// ErrDimensionMismatch means the query embedding does not match the
	// configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Result is the outcome of one preflight check.
type Result struct {
	Signal             Signal
	Confidence         float64
	BloomMatch         bool
	CentroidSimilarity float64
	MatchedEntities    []string
	ClosestCluster     string
}

// IndexSource loads the data behind the preflight index.
type IndexSource interface {
	ListKnownEntities(ctx context.Context) ([]string, error)
	ListClusterCentroids(ctx context.Context) ([]*store.ClusterCentroid, error)
}

// snapshot is an immutable view of the index. Refreshes build a complete new
// snapshot and swap the pointer, so readers never observe a partial update.
type snapshot struct {
	filter    *bloom.BloomFilter
	entities  map[string]struct{}
	multiword []string
	centroids []*store.ClusterCentroid
	degraded  bool
}

// Checker estimates whether relevant knowledge likely exists.
type Checker struct {
	source IndexSource
	dim    int
	logger *slog.Logger

	snap        atomic.Pointer[snapshot]
	initialized atomic.Bool
	group       singleflight.Group
}

// New creates an uninitialized Checker for embeddings of the given dimension.
func New(source IndexSource, dim int, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{source: source, dim: dim, logger: logger}
}

// Initialize loads the entity set and cluster centroids. A load failure is
// logged and the checker still becomes initialized with a degraded snapshot,
// so later checks report UNCERTAIN instead of erroring.
func (c *Checker) Initialize(ctx context.Context) error {
	snap, err := c.load(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "preflight index load failed, degrading to uncertain", "error", err)
		snap = &snapshot{degraded: true}
	}
	c.snap.Store(snap)
	c.initialized.Store(true)
	return nil
}

// Refresh rebuilds the index snapshot. Concurrent refreshes collapse into a
// single load; the previous snapshot stays active when the load fails.
func (c *Checker) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		snap, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.snap.Store(snap)
		return nil, nil
	})
	return err
}

// RunRefresher refreshes the snapshot on the given interval until the
// context is cancelled. Intended to run as a background goroutine.
func (c *Checker) RunRefresher(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.WarnContext(ctx, "preflight index refresh failed, keeping previous snapshot", "error", err)
			}
		}
	}
}

func (c *Checker) load(ctx context.Context) (*snapshot, error) {
	entities, err := c.source.ListKnownEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	centroids, err := c.source.ListClusterCentroids(ctx)
	if err != nil {
		return nil, fmt.Errorf("load centroids: %w", err)
	}

	capacity := uint(len(entities))
	if capacity < 64 {
		capacity = 64
	}
	snap := &snapshot{
		filter:    bloom.NewWithEstimates(capacity, bloomFalsePositiveRate),
		entities:  make(map[string]struct{}, len(entities)),
		centroids: centroids,
	}
	for _, entity := range entities {
		name := strings.ToLower(strings.TrimSpace(entity))
		if name == "" {
			continue
		}
		snap.entities[name] = struct{}{}
		snap.filter.AddString(name)
		if strings.ContainsRune(name, ' ') {
			snap.multiword = append(snap.multiword, name)
		}
	}
	return snap, nil
}

// Check estimates whether knowledge relevant to the query exists. It fails
// only when called before Initialize or with a wrong-sized embedding.
func (c *Checker) Check(ctx context.Context, query string, embedding []float32, userID string) (*Result, error) {
	if !c.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if len(embedding) != c.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), c.dim)
	}

	snap := c.snap.Load()
	if snap.degraded {
		return &Result{Signal: SignalUncertain, Confidence: 0.5}, nil
	}

	matched, bloomMatch := snap.matchEntities(query)
	centroidSim, closest := snap.closestCentroid(embedding)

	confidence := minFloat(0.4, 0.1*float64(len(matched)))
	if centroidSim >= CentroidGate {
		confidence += 0.4 * centroidSim
		if len(matched) > 0 {
			confidence += 0.2
		}
	}
	confidence = clamp01(confidence)

	signal := SignalUncertain
	switch {
	case confidence >= LikelyThreshold:
		signal = SignalLikely
	case confidence <= UnlikelyThreshold:
		signal = SignalUnlikely
	}

	c.logger.DebugContext(ctx, "preflight check",
		"user_id", userID,
		"signal", string(signal),
		"confidence", confidence,
		"matched_entities", len(matched),
		"closest_cluster", closest,
	)
	return &Result{
		Signal:             signal,
		Confidence:         confidence,
		BloomMatch:         bloomMatch,
		CentroidSimilarity: centroidSim,
		MatchedEntities:    matched,
		ClosestCluster:     closest,
	}, nil
}

// matchEntities extracts known entities from the query: tokens are probed
// through the bloom filter first, then confirmed against the entity set;
// multi-word entities are found by substring.
func (s *snapshot) matchEntities(query string) (matched []string, bloomMatch bool) {
	lowered := strings.ToLower(query)
	seen := map[string]struct{}{}

	for _, token := range strings.FieldsFunc(lowered, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if !s.filter.TestString(token) {
			continue
		}
		bloomMatch = true
		if _, ok := s.entities[token]; ok {
			if _, dup := seen[token]; !dup {
				seen[token] = struct{}{}
				matched = append(matched, token)
			}
		}
	}

	for _, entity := range s.multiword {
		if strings.Contains(lowered, entity) {
			if _, dup := seen[entity]; !dup {
				seen[entity] = struct{}{}
				matched = append(matched, entity)
				bloomMatch = true
			}
		}
	}
	return matched, bloomMatch
}

func (s *snapshot) closestCentroid(embedding []float32) (best float64, name string) {
	for _, cluster := range s.centroids {
		sim := cosineSimilarity(embedding, cluster.Centroid)
		if sim > best {
			best = sim
			name = cluster.Name
		}
	}
	return clamp01(best), name
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
