package domain

import "time"

// JobStatus enumerates image job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// SupersededReason is the fixed failure reason the superseding sweep writes
// onto stale pending/generating rows.
const SupersededReason = "superseded by a newer generation request"

// FilterChange records one substitution the content filter applied before
// submission.
type FilterChange struct {
	Term        string `json:"term"`
	Replacement string `json:"replacement"`
}

// ImageJob is one persisted attempt to generate an image for a recipe. Many
// rows may exist per recipe over time; at most one may hold pending or
// generating at any instant.
type ImageJob struct {
	ID            string
	RecipeID      string
	Prompt        string
	FilterChanges []FilterChange
	CorrelationID string
	ImagePath     string
	Status        JobStatus
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
