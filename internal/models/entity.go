package models

import "time"

// Immutable entity fields. They are assigned by the repository layer (or the
// server) once and never take part in conflict detection or merging.
const (
	FieldID          = "id"
	FieldWorkspaceID = "workspaceId"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldDeletedAt   = "deletedAt"
	FieldVersion     = "version"
)

// Entity представляет любую синхронизируемую запись.
// Базовые поля общие для всех типов (transactions, budgets, categories, goals),
// а прикладные данные лежат в Fields.
type Entity struct {
	CreatedAt   time.Time      `json:"created_at"`           // CreatedAt время создания (назначается репозиторием)
	UpdatedAt   time.Time      `json:"updated_at"`           // UpdatedAt время последнего изменения, основа LWW
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"` // DeletedAt время soft delete (nil = запись активна)
	Fields      map[string]any `json:"fields,omitempty"`     // Fields прикладные поля записи
	ID          string         `json:"id"`                   // ID неизменяемый идентификатор записи
	WorkspaceID string         `json:"workspace_id"`         // WorkspaceID владелец записи
	Version     int64          `json:"version"`              // Version монотонно растущая версия записи
}

// IsNewerThan reports whether e was updated strictly after other.
func (e Entity) IsNewerThan(other Entity) bool {
	return e.UpdatedAt.After(other.UpdatedAt)
}

// IsDeleted reports whether the entity carries a soft-delete marker.
func (e Entity) IsDeleted() bool {
	return e.DeletedAt != nil
}

// Get returns an application field value.
func (e Entity) Get(field string) (any, bool) {
	v, ok := e.Fields[field]
	return v, ok
}

// Clone создает глубокую копию записи
func (e Entity) Clone() Entity {
	clone := e
	if e.DeletedAt != nil {
		deletedAt := *e.DeletedAt
		clone.DeletedAt = &deletedAt
	}
	if e.Fields != nil {
		clone.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			clone.Fields[k] = cloneValue(v)
		}
	}
	return clone
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	case []byte:
		b := make([]byte, len(val))
		copy(b, val)
		return b
	default:
		return val
	}
}
