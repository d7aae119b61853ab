package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/offsync/internal/models"
)

func newTestOperation(id string) *models.SyncOperation {
	return &models.SyncOperation{
		ID:     id,
		Type:   models.OperationPush,
		Status: models.StatusPending,
	}
}

func TestNew_DefaultSize(t *testing.T) {
	q := New(0)

	assert.Equal(t, DefaultMaxSize, q.Stats().MaxSize)
	assert.Equal(t, 0, q.Len())
}

func TestNewOperation(t *testing.T) {
	changes := []models.Change{{ID: "c-1"}}
	op1 := NewOperation(models.OperationPush, changes)
	op2 := NewOperation(models.OperationPull, nil)

	assert.Len(t, op1.ID, 26, "ulid string")
	assert.NotEqual(t, op1.ID, op2.ID)
	assert.Equal(t, models.StatusPending, op1.Status)
	assert.Equal(t, changes, op1.Changes)
	assert.Equal(t, 0, op1.Attempts)
}

func TestQueue_EvictsOldest(t *testing.T) {
	q := New(2)

	assert.Nil(t, q.Enqueue(newTestOperation("op-1")))
	assert.Nil(t, q.Enqueue(newTestOperation("op-2")))
	evicted := q.Enqueue(newTestOperation("op-3"))

	require.NotNil(t, evicted)
	assert.Equal(t, "op-1", evicted.ID)
	assert.Equal(t, 2, q.Len())

	_, ok := q.Get("op-1")
	assert.False(t, ok)

	var ids []string
	for _, op := range q.List() {
		ids = append(ids, op.ID)
	}
	assert.Equal(t, []string{"op-2", "op-3"}, ids)
}

func TestQueue_EnqueueExistingReplacesInPlace(t *testing.T) {
	q := New(2)
	q.Enqueue(newTestOperation("op-1"))
	q.Enqueue(newTestOperation("op-2"))

	replacement := newTestOperation("op-1")
	replacement.Changes = []models.Change{{ID: "c-1"}}
	assert.Nil(t, q.Enqueue(replacement))

	ops := q.List()
	require.Len(t, ops, 2)
	assert.Equal(t, "op-1", ops[0].ID)
	assert.Len(t, ops[0].Changes, 1)
}

func TestQueue_EnqueueStoresCopy(t *testing.T) {
	q := New(10)
	op := newTestOperation("op-1")
	op.Status = ""
	q.Enqueue(op)

	op.Type = models.OperationPull

	stored, ok := q.Get("op-1")
	require.True(t, ok)
	assert.Equal(t, models.OperationPush, stored.Type)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestQueue_Next(t *testing.T) {
	q := New(10)

	_, ok := q.Next()
	assert.False(t, ok)

	q.Enqueue(newTestOperation("op-1"))
	q.Enqueue(newTestOperation("op-2"))
	require.NoError(t, q.UpdateStatus("op-1", models.StatusFailed, errors.New("boom")))

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "op-2", next.ID)
}

func TestQueue_UpdateStatus(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	q := New(10)
	q.now = func() time.Time { return fixed }
	q.Enqueue(newTestOperation("op-1"))

	require.NoError(t, q.UpdateStatus("op-1", models.StatusInProgress, nil))
	op, _ := q.Get("op-1")
	assert.Equal(t, models.StatusInProgress, op.Status)
	assert.Equal(t, fixed, op.StartedAt)
	assert.Nil(t, op.CompletedAt)

	require.NoError(t, q.UpdateStatus("op-1", models.StatusFailed, errors.New("network down")))
	op, _ = q.Get("op-1")
	assert.Equal(t, "network down", op.Error)

	require.NoError(t, q.UpdateStatus("op-1", models.StatusCompleted, nil))
	op, _ = q.Get("op-1")
	require.NotNil(t, op.CompletedAt)
	assert.Equal(t, fixed, *op.CompletedAt)
	assert.Empty(t, op.Error)

	assert.ErrorIs(t, q.UpdateStatus("missing", models.StatusCompleted, nil), ErrOperationNotFound)
}

func TestQueue_Retry(t *testing.T) {
	tests := []struct {
		name   string
		status models.OperationStatus
		want   bool
	}{
		{name: "failed", status: models.StatusFailed, want: true},
		{name: "pending", status: models.StatusPending, want: false},
		{name: "in-progress", status: models.StatusInProgress, want: false},
		{name: "completed", status: models.StatusCompleted, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(10)
			q.Enqueue(newTestOperation("op-1"))
			require.NoError(t, q.UpdateStatus("op-1", tt.status, errors.New("boom")))

			assert.Equal(t, tt.want, q.Retry("op-1"))

			op, _ := q.Get("op-1")
			if tt.want {
				assert.Equal(t, models.StatusPending, op.Status)
				assert.Empty(t, op.Error)
				assert.Equal(t, 1, op.Attempts)
			} else {
				assert.Equal(t, tt.status, op.Status)
				assert.Equal(t, 0, op.Attempts)
			}
		})
	}

	assert.False(t, New(1).Retry("missing"))
}

func TestQueue_ClearCompleted(t *testing.T) {
	q := New(10)
	for _, id := range []string{"op-1", "op-2", "op-3"} {
		q.Enqueue(newTestOperation(id))
	}
	require.NoError(t, q.UpdateStatus("op-1", models.StatusCompleted, nil))
	require.NoError(t, q.UpdateStatus("op-3", models.StatusCompleted, nil))

	assert.Equal(t, 2, q.ClearCompleted())
	assert.Equal(t, 0, q.ClearCompleted())
	assert.Equal(t, 1, q.Len())

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "op-2", next.ID)
}

func TestQueue_Stats(t *testing.T) {
	q := New(5)
	for _, id := range []string{"op-1", "op-2", "op-3", "op-4"} {
		q.Enqueue(newTestOperation(id))
	}
	require.NoError(t, q.UpdateStatus("op-2", models.StatusInProgress, nil))
	require.NoError(t, q.UpdateStatus("op-3", models.StatusCompleted, nil))
	require.NoError(t, q.UpdateStatus("op-4", models.StatusFailed, nil))

	assert.Equal(t, Stats{Pending: 1, InProgress: 1, Completed: 1, Failed: 1, Size: 4, MaxSize: 5}, q.Stats())
}

func TestQueue_FailedChanges(t *testing.T) {
	q := New(5)
	op := newTestOperation("op-1")
	op.Changes = []models.Change{{ID: "c-1"}, {ID: "c-2"}}
	q.Enqueue(op)
	q.Enqueue(newTestOperation("op-2"))

	assert.Equal(t, 0, q.FailedChanges(nil))
	require.NoError(t, q.UpdateStatus("op-1", models.StatusFailed, nil))
	assert.Equal(t, 2, q.FailedChanges(nil))

	// Повторная неудача с теми же изменениями не удваивает счетчик
	again := newTestOperation("op-3")
	again.Changes = []models.Change{{ID: "c-2"}, {ID: "c-3"}}
	q.Enqueue(again)
	require.NoError(t, q.UpdateStatus("op-3", models.StatusFailed, nil))
	assert.Equal(t, 3, q.FailedChanges(nil))

	pending := func(id string) bool { return id == "c-3" }
	assert.Equal(t, 1, q.FailedChanges(pending))
	assert.Equal(t, 0, q.FailedChanges(func(string) bool { return false }))
}

func TestQueue_SetConflicts(t *testing.T) {
	q := New(5)
	q.Enqueue(newTestOperation("op-1"))

	conflicts := []models.Conflict{{ID: "cf-1", Field: "name"}}
	resolutions := []models.Entity{{ID: "tx-1", Version: 3}}
	require.NoError(t, q.SetConflicts("op-1", conflicts, resolutions))

	op, _ := q.Get("op-1")
	assert.Equal(t, conflicts, op.Conflicts)
	assert.Equal(t, resolutions, op.Resolutions)
	assert.ErrorIs(t, q.SetConflicts("missing", nil, nil), ErrOperationNotFound)
}

func TestQueue_Restore(t *testing.T) {
	q := New(2)
	q.Enqueue(newTestOperation("stale"))

	inProgress := newTestOperation("op-2")
	inProgress.Status = models.StatusInProgress
	q.Restore([]*models.SyncOperation{
		newTestOperation("op-1"),
		inProgress,
		newTestOperation("op-3"),
	})

	ops := q.List()
	require.Len(t, ops, 2, "restore keeps the newest operations within capacity")
	assert.Equal(t, "op-2", ops[0].ID)
	assert.Equal(t, models.StatusPending, ops[0].Status, "interrupted operations become pending")
	assert.Equal(t, "op-3", ops[1].ID)

	_, ok := q.Get("stale")
	assert.False(t, ok)
}
