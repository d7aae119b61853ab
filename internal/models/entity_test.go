package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntity_IsNewerThan(t *testing.T) {
	older := Entity{UpdatedAt: time.UnixMilli(100)}
	newer := Entity{UpdatedAt: time.UnixMilli(200)}

	assert.True(t, newer.IsNewerThan(older))
	assert.False(t, older.IsNewerThan(newer))
	assert.False(t, older.IsNewerThan(older), "equal timestamps are not newer")
}

func TestEntity_Clone(t *testing.T) {
	deletedAt := time.UnixMilli(300)
	original := Entity{
		ID:          "tx-1",
		WorkspaceID: "ws-1",
		CreatedAt:   time.UnixMilli(100),
		UpdatedAt:   time.UnixMilli(200),
		DeletedAt:   &deletedAt,
		Version:     3,
		Fields: map[string]any{
			"name":  "coffee",
			"tags":  []any{"food", "daily"},
			"meta":  map[string]any{"source": "card"},
			"bytes": []byte{1, 2, 3},
		},
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.Fields["name"] = "tea"
	clone.Fields["tags"].([]any)[0] = "drinks"
	clone.Fields["meta"].(map[string]any)["source"] = "cash"
	clone.Fields["bytes"].([]byte)[0] = 9
	*clone.DeletedAt = time.UnixMilli(999)

	assert.Equal(t, "coffee", original.Fields["name"])
	assert.Equal(t, "food", original.Fields["tags"].([]any)[0])
	assert.Equal(t, "card", original.Fields["meta"].(map[string]any)["source"])
	assert.Equal(t, byte(1), original.Fields["bytes"].([]byte)[0])
	assert.Equal(t, deletedAt, *original.DeletedAt)
}

func TestEntity_CloneNilFields(t *testing.T) {
	clone := Entity{ID: "tx-1"}.Clone()

	assert.Nil(t, clone.Fields)
	assert.Nil(t, clone.DeletedAt)
	assert.False(t, clone.IsDeleted())
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(string(s))
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStrategy("manual")
	assert.Error(t, err)
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("delete")
	assert.NoError(t, err)
	assert.Equal(t, OperationDelete, op)

	_, err = ParseOperation("upsert")
	assert.Error(t, err)
}

func TestSyncOperation_Clone(t *testing.T) {
	completedAt := time.UnixMilli(10)
	op := &SyncOperation{
		ID:          "op-1",
		CompletedAt: &completedAt,
		Changes:     []Change{{ID: "c-1", Entity: Entity{ID: "tx-1", Fields: map[string]any{"a": 1}}}},
		Resolutions: []Entity{{ID: "tx-1", Fields: map[string]any{"a": 2}}},
	}

	clone := op.Clone()
	clone.Changes[0].Entity.Fields["a"] = 5
	clone.Resolutions[0].Fields["a"] = 5
	*clone.CompletedAt = time.UnixMilli(20)

	assert.Equal(t, 1, op.Changes[0].Entity.Fields["a"])
	assert.Equal(t, 2, op.Resolutions[0].Fields["a"])
	assert.Equal(t, completedAt, *op.CompletedAt)

	var nilOp *SyncOperation
	assert.Nil(t, nilOp.Clone())
}
