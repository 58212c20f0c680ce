package model

import "time"

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
	BatchCanceled  BatchStatus = "canceled"
)

// ImportBatch summarizes one import operation. Immutable once finalized.
type ImportBatch struct {
	ID               string
	SourceFile       string
	Profile          string
	DetectedEncoding string
	RowCount         int
	Accepted         int
	Duplicates       int
	Malformed        int
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           BatchStatus
	Error            string
}
