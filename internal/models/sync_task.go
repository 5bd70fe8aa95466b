package models

import "time"

// SyncTask is a persisted unit of ingestion work: a contiguous page range
// of one remote collection.
type SyncTask struct {
	ID           int64      `json:"id"`
	SyncType     string     `json:"sync_type"`
	StartPage    int        `json:"start_page"`
	EndPage      int        `json:"end_page"`
	TotalPages   int        `json:"total_pages"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// Pages returns the number of pages covered by the task's range.
func (t *SyncTask) Pages() int {
	return t.EndPage - t.StartPage + 1
}
