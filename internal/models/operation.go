package models

import "time"

// OperationType is the kind of queued synchronization work.
type OperationType string

const (
	OperationPush       OperationType = "push"
	OperationPull       OperationType = "pull"
	OperationPullRebase OperationType = "pull-rebase"
)

// OperationStatus is the lifecycle state of a SyncOperation.
//
//	pending -> in-progress -> completed | failed
//	failed  -> pending (explicit retry only)
type OperationStatus string

const (
	StatusPending    OperationStatus = "pending"
	StatusInProgress OperationStatus = "in-progress"
	StatusCompleted  OperationStatus = "completed"
	StatusFailed     OperationStatus = "failed"
)

// SyncOperation is a unit of synchronization work buffered by the operation queue.
type SyncOperation struct {
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	ID          string          `json:"id"`
	Type        OperationType   `json:"type"`
	Status      OperationStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	Strategy    Strategy        `json:"strategy,omitempty"` // Strategy стратегия для pull-rebase операций
	Changes     []Change        `json:"changes,omitempty"`
	Conflicts   []Conflict      `json:"conflicts,omitempty"`
	Resolutions []Entity        `json:"resolutions,omitempty"`
	Attempts    int             `json:"attempts"`
}

// Clone returns a deep copy of the operation.
func (op *SyncOperation) Clone() *SyncOperation {
	if op == nil {
		return nil
	}
	clone := *op
	if op.CompletedAt != nil {
		completedAt := *op.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if op.Changes != nil {
		clone.Changes = make([]Change, len(op.Changes))
		for i, c := range op.Changes {
			clone.Changes[i] = c.Clone()
		}
	}
	if op.Conflicts != nil {
		clone.Conflicts = make([]Conflict, len(op.Conflicts))
		copy(clone.Conflicts, op.Conflicts)
	}
	if op.Resolutions != nil {
		clone.Resolutions = make([]Entity, len(op.Resolutions))
		for i, e := range op.Resolutions {
			clone.Resolutions[i] = e.Clone()
		}
	}
	return &clone
}
