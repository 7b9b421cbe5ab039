// Package rank computes the Context Relevance Score (CRS) for retrieved
// memories: a weighted blend of similarity, recency, importance and
// feedback signals.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/mnemoslab/engram/store"
)

const (
	// RecencyHalfLifeDays is the age at which the recency component
	// decays to 0.5.
	RecencyHalfLifeDays = 30.0

	// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
	WeightSumTolerance = 1e-6

	defaultComponentScore = 0.5
)

// Weights blends the four CRS components. They must sum to 1.0.
type Weights struct {
	Similarity float64
	Recency    float64
	Importance float64
	Feedback   float64
}

// DefaultWeights returns the standard CRS weight set.
func DefaultWeights() Weights {
	return Weights{
		Similarity: 0.5,
		Recency:    0.2,
		Importance: 0.2,
		Feedback:   0.1,
	}
}

// Breakdown exposes each CRS component for debugging and tests.
type Breakdown struct {
	Similarity float64
	Recency    float64
	Importance float64
	Feedback   float64
}

// ScoredResult pairs a candidate with its CRS.
type ScoredResult struct {
	Item      *store.RawResult
	Score     float64
	Breakdown Breakdown
}

// Ranker scores and orders retrieval candidates.
type Ranker struct {
	weights Weights
}

// New creates a Ranker. Weight sets not summing to 1.0 are rejected here,
// never at scoring time.
func New(weights Weights) (*Ranker, error) {
	sum := weights.Similarity + weights.Recency + weights.Importance + weights.Feedback
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return nil, errors.Errorf("rank weights must sum to 1.0, got %v", sum)
	}
	return &Ranker{weights: weights}, nil
}

// Score computes the CRS for every candidate and returns them ordered by
// score descending. The sort is stable: ties keep the input order.
func (r *Ranker) Score(results []*store.RawResult, now time.Time) []*ScoredResult {
	scored := make([]*ScoredResult, 0, len(results))
	for _, item := range results {
		breakdown := Breakdown{
			Similarity: item.Similarity(),
			Recency:    recency(item.Props.CreatedAt, now),
			Importance: importance(&item.Props),
			Feedback:   feedback(&item.Props),
		}
		score := r.weights.Similarity*breakdown.Similarity +
			r.weights.Recency*breakdown.Recency +
			r.weights.Importance*breakdown.Importance +
			r.weights.Feedback*breakdown.Feedback
		scored = append(scored, &ScoredResult{
			Item:      item,
			Score:     clamp01(score),
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// recency decays with a 30-day half-life. Unknown timestamps score neutral.
func recency(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return defaultComponentScore
	}
	ageDays := now.Sub(*createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return clamp01(math.Exp(-ageDays * math.Ln2 / RecencyHalfLifeDays))
}

func importance(props *store.MemoryProperties) float64 {
	if props.Importance == nil {
		return defaultComponentScore
	}
	return clamp01(*props.Importance)
}

// feedback prefers an explicit feedback score, then derives one from usage,
// then from validation.
func feedback(props *store.MemoryProperties) float64 {
	switch {
	case props.FeedbackScore != nil:
		return clamp01(*props.FeedbackScore)
	case props.UsageCount != nil:
		return clamp01(math.Min(1, 0.5+0.05*float64(*props.UsageCount)))
	case props.Validated != nil && *props.Validated:
		return 0.8
	default:
		return defaultComponentScore
	}
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
