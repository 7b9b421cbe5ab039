package store

import (
	"time"
)

// QueryType classifies a cached answer for TTL purposes.
type QueryType string

const (
	QueryTypeDefinition QueryType = "DEFINITION"
	QueryTypeFactual    QueryType = "FACTUAL"
	QueryTypeTemporal   QueryType = "TEMPORAL"
	QueryTypeCreative   QueryType = "CREATIVE"
	QueryTypeCode       QueryType = "CODE"
)

// CacheEntry is a verified answer stored for re-serving.
// Entries are created on promotion, mutated on serve and feedback, and
// deleted once negative feedback exceeds the demotion limit.
type CacheEntry struct {
	ID                    string
	QueryText             string
	Response              string
	AgentUsed             string
	ContainsWebSearch     bool
	QueryType             QueryType
	Confidence            float64
	UserVerified          bool
	PositiveFeedbackCount int
	NegativeFeedbackCount int
	UserID                string
	PrivacyLevel          PrivacyLevel
	CreatedAt             time.Time
	ServeCount            int
}

// AgeHours returns the entry age at the given instant.
func (e *CacheEntry) AgeHours(now time.Time) float64 {
	return now.Sub(e.CreatedAt).Hours()
}

// CreateCacheEntry is the insert payload for a cache promotion.
type CreateCacheEntry struct {
	QueryText         string
	Embedding         []float32
	Response          string
	AgentUsed         string
	ContainsWebSearch bool
	QueryType         QueryType
	Confidence        float64
	UserVerified      bool
	UserID            string
	PrivacyLevel      PrivacyLevel
}
