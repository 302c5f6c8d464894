// Package dto defines data transfer objects for the job state HTTP API.
package dto

import "time"

// JobStateItem represents one crawl job state in the API response.
type JobStateItem struct {
	Symbol                  string     `json:"symbol"`
	LastSyncStatus          string     `json:"lastSyncStatus"`
	LastSuccessfulTimestamp *time.Time `json:"lastSuccessfulTimestamp"`
	ErrorLog                *string    `json:"errorLog"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}
