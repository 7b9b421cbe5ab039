package store

import (
	"time"
)

// QueryHistoryEntry is one answered query in a session, consulted by the
// consolidation triager for follow-up and novelty signals.
type QueryHistoryEntry struct {
	ID        string
	SessionID string
	UserID    string
	Question  string
	AskedAt   time.Time
}

// FindQueryHistory is the find condition for session query history.
type FindQueryHistory struct {
	SessionID string
	Since     time.Time
	Limit     int
}
