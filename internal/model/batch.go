package model

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus represents the lifecycle state of a reconciliation batch.
// Transitions only move forward: UPLOADING -> PROCESSING -> {COMPLETED, FAILED}.
type BatchStatus string

const (
	BatchUploading  BatchStatus = "UPLOADING"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchCompleted  BatchStatus = "COMPLETED"
	BatchFailed     BatchStatus = "FAILED"
)

// Terminal reports whether the batch has finished processing.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// Batch is one reconciliation run initiated by a single uploaded
// transaction file. It is created by upload, mutated only by polling
// refresh, and discarded when the user leaves the batch view.
type Batch struct {
	ID                uuid.UUID   `json:"id"`
	Filename          string      `json:"filename"`
	Status            BatchStatus `json:"status"`
	TotalTransactions int         `json:"totalTransactions"`
	ProcessedCount    int         `json:"processedCount"`
	AutoMatchedCount  int         `json:"autoMatchedCount"`
	NeedsReviewCount  int         `json:"needsReviewCount"`
	UnmatchedCount    int         `json:"unmatchedCount"`
	StartedAt         time.Time   `json:"startedAt"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
}
