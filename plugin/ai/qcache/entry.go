package qcache

import (
	"time"

	"github.com/mnemoslab/engram/store"
)

// Quality and validity rules for cached answers.
const (
	// MinQualityScore is the quality bar below which an entry is never served.
	MinQualityScore = 0.5

	// MaxNegativeFeedback is the last tolerated negative feedback count;
	// exceeding it deletes the entry.
	MaxNegativeFeedback = 2

	verifiedBonus       = 0.1
	positiveFeedbackCap = 0.1
	positiveFeedbackPer = 0.02

	// webSearchTTLHours caps entries whose answers embed live web results.
	webSearchTTLHours = 1
)

// ttlHoursByQueryType maps answer categories to serve lifetimes. Zero means
// the category is never served from cache.
var ttlHoursByQueryType = map[store.QueryType]float64{
	store.QueryTypeDefinition: 168,
	store.QueryTypeFactual:    24,
	store.QueryTypeCode:       24,
	store.QueryTypeTemporal:   0,
	store.QueryTypeCreative:   0,
}

// QualityScore rates an entry from its confidence and feedback history.
// Entries past the negative feedback limit score zero outright.
func QualityScore(entry *store.CacheEntry) float64 {
	if entry.NegativeFeedbackCount > MaxNegativeFeedback {
		return 0
	}
	score := entry.Confidence
	if entry.UserVerified {
		score += verifiedBonus
	}
	positive := positiveFeedbackPer * float64(entry.PositiveFeedbackCount)
	if positive > positiveFeedbackCap {
		positive = positiveFeedbackCap
	}
	score += positive
	if score > 1 {
		return 1
	}
	return score
}

// TTLHours returns how long the entry may be served. Web-search answers go
// stale after an hour regardless of category.
func TTLHours(entry *store.CacheEntry) float64 {
	if entry.ContainsWebSearch {
		return webSearchTTLHours
	}
	if ttl, ok := ttlHoursByQueryType[entry.QueryType]; ok {
		return ttl
	}
	return ttlHoursByQueryType[store.QueryTypeFactual]
}

// IsValidForRequest reports whether the entry may answer a request for the
// given agent at the given instant.
func IsValidForRequest(entry *store.CacheEntry, requestedAgent string, now time.Time) bool {
	if QualityScore(entry) < MinQualityScore {
		return false
	}
	if requestedAgent != "" && requestedAgent != "auto" && requestedAgent != entry.AgentUsed {
		return false
	}
	ttl := TTLHours(entry)
	if ttl <= 0 {
		return false
	}
	return entry.AgeHours(now) <= ttl
}
