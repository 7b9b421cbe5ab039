package retrieval

import (
	"github.com/mnemoslab/engram/store"
)

// QualityLevel grades a candidate list for logging and caller heuristics.
type QualityLevel int

const (
	LowQuality QualityLevel = iota
	MediumQuality
	HighQuality
)

func (q QualityLevel) String() string {
	switch q {
	case LowQuality:
		return "low"
	case MediumQuality:
		return "medium"
	case HighQuality:
		return "high"
	default:
		return "unknown"
	}
}

// EvaluateQuality grades results by top similarity and the gap to the
// runner-up. A clear leader or a very strong top hit is high quality.
// Input is assumed sorted by distance ascending, as Retrieve returns it.
func EvaluateQuality(results []*store.RawResult) QualityLevel {
	if len(results) == 0 {
		return LowQuality
	}

	top := results[0].Similarity()
	if len(results) >= 2 && top-results[1].Similarity() > 0.20 {
		return HighQuality
	}
	if top > 0.90 {
		return HighQuality
	}
	if top > 0.70 {
		return MediumQuality
	}
	return LowQuality
}
