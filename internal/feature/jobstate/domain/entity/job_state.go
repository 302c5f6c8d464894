// Package entity defines the domain models for crawl job state tracking.
package entity

import "time"

// JobStatus is the outcome of the most recent crawl attempt.
type JobStatus string

const (
	StatusRunning   JobStatus = "RUNNING"
	StatusSucceeded JobStatus = "SUCCEEDED"
	StatusFailed    JobStatus = "FAILED"
)

// NewsJobKey is the job state key shared by all news fetches.
const NewsJobKey = "NEWS_ALL"

// Key suffixes for the per-symbol refresh jobs. The bare symbol is the backfill's key.
const (
	QuoteJobSuffix          = "_QUOTE"
	RecommendationJobSuffix = "_RECOMMENDATION"
	ProfileJobSuffix        = "_PROFILE"
)

// SymbolJobKey returns the job state key of a per-symbol refresh job.
func SymbolJobKey(symbol, suffix string) string { return symbol + suffix }

// JobState is the persisted progress record of one crawl key, usually a symbol.
// There is at most one JobState per key.
type JobState struct {
	Symbol           string
	LastSyncStatus   JobStatus
	LastSuccessfulAt *time.Time
	ErrorLog         *string
	UpdatedAt        time.Time
}

// Apply returns the state after a transition to status at now.
//
// SUCCEEDED stamps LastSuccessfulAt and clears ErrorLog. FAILED records errMsg
// when it is non-empty and otherwise keeps the previous ErrorLog. RUNNING only
// changes the status.
func (s JobState) Apply(status JobStatus, errMsg string, now time.Time) JobState {
	next := s
	next.LastSyncStatus = status
	next.UpdatedAt = now

	switch status {
	case StatusSucceeded:
		ts := now
		next.LastSuccessfulAt = &ts
		next.ErrorLog = nil
	case StatusFailed:
		if errMsg != "" {
			msg := errMsg
			next.ErrorLog = &msg
		}
	}
	return next
}
