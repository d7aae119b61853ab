package models

import (
	"fmt"
	"time"
)

// Operation is the kind of local mutation a Change records.
type Operation string

// Operation константы для типов мутаций
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether op is one of the known mutation kinds.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// ParseOperation converts a user supplied string into an Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if !op.Valid() {
		return "", fmt.Errorf("unknown operation %q", s)
	}
	return op, nil
}

// Change is an immutable record of one local mutation. Only Synced changes
// after creation.
type Change struct {
	Timestamp  time.Time `json:"timestamp"`
	Entity     Entity    `json:"entity"`
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	Operation  Operation `json:"operation"`
	ClientID   string    `json:"client_id"`
	Synced     bool      `json:"synced"`
}

// EntityID returns the id of the entity the change refers to.
func (c Change) EntityID() string {
	return c.Entity.ID
}

// Clone returns a deep copy of the change.
func (c Change) Clone() Change {
	clone := c
	clone.Entity = c.Entity.Clone()
	return clone
}

// ChangeIDs extracts the ids of changes preserving order.
func ChangeIDs(changes []Change) []string {
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ID)
	}
	return ids
}

// ChangeLog is a versioned snapshot of unsynced changes.
type ChangeLog struct {
	CreatedAt time.Time `json:"created_at"`
	ClientID  string    `json:"client_id"`
	Changes   []Change  `json:"changes"`
	Version   int64     `json:"version"`
}
