package store

import (
	"time"
)

// ReviewPriority orders review queue entries for human attention.
type ReviewPriority string

const (
	ReviewPriorityHigh   ReviewPriority = "high"
	ReviewPriorityMedium ReviewPriority = "medium"
	ReviewPriorityLow    ReviewPriority = "low"
)

// ReviewStatus is the human-driven lifecycle of a flagged entry.
// Entries are created pending and only a reviewer moves them on.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusApproved  ReviewStatus = "approved"
	ReviewStatusRejected  ReviewStatus = "rejected"
	ReviewStatusCorrected ReviewStatus = "corrected"
)

// ReviewQueueEntry flags a piece of knowledge for human review after a
// related cache entry was deleted. The cascade never deletes knowledge;
// it only creates these rows.
type ReviewQueueEntry struct {
	ID               string
	EntryID          string
	EntryCollection  string
	Reason           string
	SourceDeletionID string
	Priority         ReviewPriority
	Status           ReviewStatus
	CreatedAt        time.Time
}

// FindReviewQueueEntry is the find condition for review queue entries.
type FindReviewQueueEntry struct {
	Status           *ReviewStatus
	SourceDeletionID *string
	Limit            *int
}
