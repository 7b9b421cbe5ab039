// Package contextbuilder assembles ranked memories into a token-budgeted
// context block for prompt injection.
package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/mnemoslab/engram/plugin/ai/rank"
)

const (
	// DefaultMaxTokens is the default context budget.
	DefaultMaxTokens = 4000

	// CharsPerToken is the character estimate for one token.
	CharsPerToken = 4

	// DedupRatio is the sequence-similarity ratio above which two entries
	// are considered near-duplicates.
	DedupRatio = 0.8

	// MinTruncationChars is the smallest budget remainder worth filling
	// with a truncated entry.
	MinTruncationChars = 100
)

// Builder assembles context strings.
type Builder struct {
	maxTokens int
}

// New creates a Builder. Non-positive budgets fall back to the default.
func New(maxTokens int) *Builder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Builder{maxTokens: maxTokens}
}

// Build formats the ranked results into a single context string. Input is
// assumed pre-sorted by score descending, so deduplication always keeps the
// higher-scored of two near-identical entries.
func (b *Builder) Build(results []*rank.ScoredResult) string {
	if len(results) == 0 {
		return ""
	}

	kept := b.deduplicate(results)
	budget := b.maxTokens * CharsPerToken

	var sb strings.Builder
	for i, result := range kept {
		entry := fmt.Sprintf("[Memory %d] (relevance: %.2f)\n%s", i+1, result.Score, result.Item.Content)
		if sb.Len() > 0 {
			entry = "\n\n" + entry
		}

		if sb.Len()+len(entry) <= budget {
			sb.WriteString(entry)
			continue
		}

		// The entry does not fit whole; salvage the remaining budget if
		// there is enough room for a meaningful fragment.
		remaining := budget - sb.Len()
		if remaining >= MinTruncationChars {
			sb.WriteString(entry[:remaining-3])
			sb.WriteString("...")
		}
		break
	}
	return sb.String()
}

// deduplicate drops entries whose lower-cased content is near-identical to
// an already kept one.
func (b *Builder) deduplicate(results []*rank.ScoredResult) []*rank.ScoredResult {
	kept := make([]*rank.ScoredResult, 0, len(results))
	keptContents := make([]string, 0, len(results))

	for _, result := range results {
		content := strings.ToLower(result.Item.Content)
		duplicate := false
		for _, prev := range keptContents {
			if sequenceRatio(content, prev) >= DedupRatio {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, result)
		keptContents = append(keptContents, content)
	}
	return kept
}
