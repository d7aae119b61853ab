package tracker

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/offsync/internal/models"
)

func createTestEntity(id string, version int64) models.Entity {
	now := time.Now()
	return models.Entity{
		ID:          id,
		WorkspaceID: "ws-1",
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     version,
		Fields:      map[string]any{"name": "entity " + id},
	}
}

func TestNew(t *testing.T) {
	tr := New("client-1")

	require.NotNil(t, tr)
	assert.Equal(t, "client-1", tr.ClientID())
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.GetUnsynced())
}

func TestNew_GeneratesClientID(t *testing.T) {
	tr := New("")

	assert.NotEmpty(t, tr.ClientID())
}

func TestTracker_Track(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	tr := New("client-1", WithClock(func() time.Time { return fixed }))

	entity := createTestEntity("tx-1", 1)
	change, err := tr.Track("transactions", models.OperationCreate, entity)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(change.ID, "client-1-1700000000000-"), "id must embed client id and timestamp")
	assert.Equal(t, "transactions", change.EntityType)
	assert.Equal(t, models.OperationCreate, change.Operation)
	assert.Equal(t, "client-1", change.ClientID)
	assert.Equal(t, fixed, change.Timestamp)
	assert.False(t, change.Synced)
	assert.Equal(t, entity, change.Entity)
}

func TestTracker_Track_SnapshotIsImmutable(t *testing.T) {
	tr := New("client-1")

	entity := createTestEntity("tx-1", 1)
	change, err := tr.Track("transactions", models.OperationUpdate, entity)
	require.NoError(t, err)

	// Меняем исходную запись после track
	entity.Fields["name"] = "mutated"
	change.Entity.Fields["name"] = "mutated too"

	stored := tr.GetUnsynced()
	require.Len(t, stored, 1)
	assert.Equal(t, "entity tx-1", stored[0].Entity.Fields["name"])
}

func TestTracker_Track_Invalid(t *testing.T) {
	tests := []struct {
		entity     models.Entity
		name       string
		entityType string
		op         models.Operation
	}{
		{name: "missing entity type", entityType: "", op: models.OperationCreate, entity: createTestEntity("tx-1", 1)},
		{name: "missing entity id", entityType: "transactions", op: models.OperationCreate, entity: models.Entity{}},
		{name: "unknown operation", entityType: "transactions", op: "upsert", entity: createTestEntity("tx-1", 1)},
		{name: "uppercase entity type", entityType: "Transactions", op: models.OperationCreate, entity: createTestEntity("tx-1", 1)},
		{name: "entity id with spaces", entityType: "transactions", op: models.OperationCreate, entity: createTestEntity("tx 1", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New("client-1")
			_, err := tr.Track(tt.entityType, tt.op, tt.entity)
			assert.ErrorIs(t, err, ErrInvalidChange)
			assert.Equal(t, 0, tr.Len())
		})
	}
}

func TestTracker_UniqueIDs(t *testing.T) {
	fixed := time.UnixMilli(42)
	tr := New("client-1", WithClock(func() time.Time { return fixed }))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		change, err := tr.Track("goals", models.OperationUpdate, createTestEntity("g-1", int64(i)))
		require.NoError(t, err)
		assert.False(t, seen[change.ID], "duplicate change id %s", change.ID)
		seen[change.ID] = true
	}
}

func TestTracker_GetUnsynced_InsertionOrder(t *testing.T) {
	tr := New("client-1")

	var ids []string
	for i := 0; i < 5; i++ {
		change, err := tr.Track("budgets", models.OperationCreate, createTestEntity(fmt.Sprintf("b-%d", i), 1))
		require.NoError(t, err)
		ids = append(ids, change.ID)
	}

	assert.Equal(t, ids, models.ChangeIDs(tr.GetUnsynced()))
}

func TestTracker_MarkSynced(t *testing.T) {
	tr := New("client-1")

	c1, err := tr.Track("categories", models.OperationCreate, createTestEntity("c-1", 1))
	require.NoError(t, err)
	c2, err := tr.Track("categories", models.OperationCreate, createTestEntity("c-2", 1))
	require.NoError(t, err)

	marked := tr.MarkSynced(c1.ID, "unknown-id")
	assert.Equal(t, 1, marked)

	unsynced := tr.GetUnsynced()
	require.Len(t, unsynced, 1)
	assert.Equal(t, c2.ID, unsynced[0].ID)
	assert.True(t, tr.IsSynced(c1.ID))
	assert.False(t, tr.IsSynced(c2.ID))

	// Повторный вызов с пересекающимися id безопасен
	marked = tr.MarkSynced(c1.ID, c2.ID, c2.ID)
	assert.Equal(t, 1, marked)
	assert.Empty(t, tr.GetUnsynced())
}

func TestTracker_MarkSynced_ExcludedFromUnsynced(t *testing.T) {
	tr := New("client-1")

	for i := 0; i < 20; i++ {
		change, err := tr.Track("transactions", models.OperationCreate, createTestEntity(fmt.Sprintf("tx-%d", i), 1))
		require.NoError(t, err)

		if i%3 == 0 {
			tr.MarkSynced(change.ID)
			for _, u := range tr.GetUnsynced() {
				assert.NotEqual(t, change.ID, u.ID)
			}
		}
	}
}

func TestTracker_ClearSynced(t *testing.T) {
	tr := New("client-1")

	c1, _ := tr.Track("goals", models.OperationCreate, createTestEntity("g-1", 1))
	c2, _ := tr.Track("goals", models.OperationCreate, createTestEntity("g-2", 1))
	c3, _ := tr.Track("goals", models.OperationCreate, createTestEntity("g-3", 1))

	tr.MarkSynced(c1.ID, c3.ID)

	assert.Equal(t, 2, tr.ClearSynced())
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []string{c2.ID}, models.ChangeIDs(tr.All()))

	// Идемпотентность
	assert.Equal(t, 0, tr.ClearSynced())
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_GetChangesForEntity(t *testing.T) {
	tr := New("client-1")

	c1, _ := tr.Track("transactions", models.OperationCreate, createTestEntity("tx-1", 1))
	_, _ = tr.Track("transactions", models.OperationCreate, createTestEntity("tx-2", 1))
	c3, _ := tr.Track("transactions", models.OperationUpdate, createTestEntity("tx-1", 2))
	tr.MarkSynced(c1.ID)

	changes := tr.GetChangesForEntity("tx-1")
	require.Len(t, changes, 2)
	assert.Equal(t, c1.ID, changes[0].ID)
	assert.True(t, changes[0].Synced)
	assert.Equal(t, c3.ID, changes[1].ID)

	assert.Empty(t, tr.GetChangesForEntity("missing"))
}

func TestTracker_ExportChangeLog(t *testing.T) {
	tr := New("client-1", WithHistorySize(2))

	c1, _ := tr.Track("budgets", models.OperationCreate, createTestEntity("b-1", 1))
	c2, _ := tr.Track("budgets", models.OperationCreate, createTestEntity("b-2", 1))
	tr.MarkSynced(c1.ID)

	log1 := tr.ExportChangeLog()
	assert.Equal(t, int64(1), log1.Version)
	assert.Equal(t, "client-1", log1.ClientID)
	assert.Equal(t, []string{c2.ID}, models.ChangeIDs(log1.Changes))

	log2 := tr.ExportChangeLog()
	log3 := tr.ExportChangeLog()
	assert.Equal(t, int64(2), log2.Version)
	assert.Equal(t, int64(3), log3.Version)

	history := tr.History()
	require.Len(t, history, 2, "history must stay bounded")
	assert.Equal(t, int64(2), history[0].Version)
	assert.Equal(t, int64(3), history[1].Version)
}

func TestTracker_Restore(t *testing.T) {
	source := New("client-1")
	c1, _ := source.Track("goals", models.OperationCreate, createTestEntity("g-1", 1))
	c2, _ := source.Track("goals", models.OperationUpdate, createTestEntity("g-1", 2))
	source.MarkSynced(c1.ID)

	restored := New("client-1")
	restored.Restore(source.All())
	restored.Restore(source.All())

	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, []string{c2.ID}, models.ChangeIDs(restored.GetUnsynced()))
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := New("client-1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				change, err := tr.Track("transactions", models.OperationCreate, createTestEntity(fmt.Sprintf("tx-%d-%d", n, j), 1))
				if err != nil {
					t.Error(err)
					return
				}
				if j%2 == 0 {
					tr.MarkSynced(change.ID)
				}
				_ = tr.GetUnsynced()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 500, tr.Len())
	assert.Len(t, tr.GetUnsynced(), 250)
	assert.Equal(t, 250, tr.ClearSynced())
}
