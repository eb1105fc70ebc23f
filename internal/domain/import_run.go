package domain

import (
	"time"

	"github.com/google/uuid"
)

type ImportRunStatus string

const (
	ImportRunStatusRunning   ImportRunStatus = "running"
	ImportRunStatusCompleted ImportRunStatus = "completed"
	ImportRunStatusFailed    ImportRunStatus = "failed"
)

// ImportRun records one sweep over the bookkeeping mutation feed.
type ImportRun struct {
	ID             uuid.UUID
	Status         ImportRunStatus
	FromMutationID int64
	ToMutationID   int64
	Created        int
	Skipped        int
	Failed         int
	Error          *string
	StartedAt      time.Time
	CompletedAt    *time.Time
}
