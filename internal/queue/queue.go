// Package queue implements the bounded, ordered store of pending sync
// operations used to buffer work while offline.
package queue

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/offsync/internal/models"
)

// DefaultMaxSize is the default queue capacity.
const DefaultMaxSize = 1000

var (
	// ErrOperationNotFound indicates that no operation with the given id is queued.
	ErrOperationNotFound = errors.New("operation not found")
)

// Stats aggregates queue contents by status.
type Stats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Size       int `json:"size"`
	MaxSize    int `json:"max_size"`
}

// Queue is a bounded FIFO of sync operations keyed by id. When full, the
// oldest operation is evicted silently.
type Queue struct {
	ops     map[string]*models.SyncOperation
	now     func() time.Time
	order   []string
	maxSize int
	mu      sync.RWMutex
}

// New creates a queue with the given capacity; non-positive values fall back
// to DefaultMaxSize.
func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{
		ops:     make(map[string]*models.SyncOperation),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// NewOperation builds a pending operation with a fresh sortable id.
func NewOperation(opType models.OperationType, changes []models.Change) *models.SyncOperation {
	return &models.SyncOperation{
		ID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Type:      opType,
		Status:    models.StatusPending,
		Changes:   changes,
		StartedAt: time.Now(),
	}
}

// Enqueue stores op. A new id evicts the oldest entry when the queue is at
// capacity; an id already queued is replaced in place. It returns the
// evicted operation, if any.
func (q *Queue) Enqueue(op *models.SyncOperation) *models.SyncOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored := op.Clone()
	if stored.Status == "" {
		stored.Status = models.StatusPending
	}

	if _, exists := q.ops[stored.ID]; exists {
		q.ops[stored.ID] = stored
		return nil
	}

	var evicted *models.SyncOperation
	if len(q.order) >= q.maxSize {
		oldest := q.order[0]
		evicted = q.ops[oldest]
		delete(q.ops, oldest)
		q.order = q.order[1:]
	}

	q.ops[stored.ID] = stored
	q.order = append(q.order, stored.ID)

	return evicted
}

// Next returns the first pending operation in insertion order.
func (q *Queue) Next() (*models.SyncOperation, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, id := range q.order {
		if op := q.ops[id]; op.Status == models.StatusPending {
			return op.Clone(), true
		}
	}
	return nil, false
}

// Get returns a copy of the operation with id.
func (q *Queue) Get(id string) (*models.SyncOperation, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	op, exists := q.ops[id]
	if !exists {
		return nil, false
	}
	return op.Clone(), true
}

// UpdateStatus moves an operation to status. Entering in-progress stamps
// StartedAt, completed stamps CompletedAt and failed records cause.
func (q *Queue) UpdateStatus(id string, status models.OperationStatus, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, exists := q.ops[id]
	if !exists {
		return ErrOperationNotFound
	}

	op.Status = status
	switch status {
	case models.StatusInProgress:
		op.StartedAt = q.now()
	case models.StatusCompleted:
		completedAt := q.now()
		op.CompletedAt = &completedAt
		op.Error = ""
	case models.StatusFailed:
		if cause != nil {
			op.Error = cause.Error()
		}
	}
	return nil
}

// SetConflicts records detected conflicts and their resolutions on an operation.
func (q *Queue) SetConflicts(id string, conflicts []models.Conflict, resolutions []models.Entity) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, exists := q.ops[id]
	if !exists {
		return ErrOperationNotFound
	}
	op.Conflicts = conflicts
	op.Resolutions = resolutions
	return nil
}

// Retry moves a failed operation back to pending, clears its error and
// counts the attempt. Any other status is left untouched and false is returned.
func (q *Queue) Retry(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, exists := q.ops[id]
	if !exists || op.Status != models.StatusFailed {
		return false
	}
	op.Status = models.StatusPending
	op.Error = ""
	op.Attempts++
	return true
}

// ClearCompleted removes completed operations and compacts the order.
// Returns the number of removed operations.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.order[:0]
	removed := 0
	for _, id := range q.order {
		if q.ops[id].Status == models.StatusCompleted {
			delete(q.ops, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	return removed
}

// List returns copies of every queued operation in insertion order.
func (q *Queue) List() []*models.SyncOperation {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]*models.SyncOperation, 0, len(q.order))
	for _, id := range q.order {
		result = append(result, q.ops[id].Clone())
	}
	return result
}

// Restore replaces the queue contents with previously persisted operations.
// Operations left in-progress by an interrupted process become pending again.
func (q *Queue) Restore(ops []*models.SyncOperation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = make(map[string]*models.SyncOperation, len(ops))
	q.order = q.order[:0]

	if len(ops) > q.maxSize {
		ops = ops[len(ops)-q.maxSize:]
	}
	for _, op := range ops {
		stored := op.Clone()
		if stored.Status == models.StatusInProgress {
			stored.Status = models.StatusPending
		}
		if _, exists := q.ops[stored.ID]; !exists {
			q.order = append(q.order, stored.ID)
		}
		q.ops[stored.ID] = stored
	}
}

// Stats returns counts by status plus current and maximum size.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := Stats{Size: len(q.order), MaxSize: q.maxSize}
	for _, op := range q.ops {
		switch op.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// FailedChanges counts the distinct changes carried by failed operations
// for which pending reports true. A nil pending counts every change.
func (q *Queue) FailedChanges(pending func(changeID string) bool) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, op := range q.ops {
		if op.Status != models.StatusFailed {
			continue
		}
		for _, c := range op.Changes {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			if pending == nil || pending(c.ID) {
				seen[c.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.order)
}
