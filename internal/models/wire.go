package models

import (
	"fmt"

	"github.com/iudanet/offsync/internal/validation"
	"github.com/iudanet/offsync/pkg/api"
)

// EntityToAPI converts an entity to its wire form.
func EntityToAPI(e Entity) api.Entity {
	e = e.Clone()
	return api.Entity{
		ID:          e.ID,
		WorkspaceID: e.WorkspaceID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		DeletedAt:   e.DeletedAt,
		Version:     e.Version,
		Fields:      e.Fields,
	}
}

// EntityFromAPI converts a wire entity.
func EntityFromAPI(e api.Entity) Entity {
	return Entity{
		ID:          e.ID,
		WorkspaceID: e.WorkspaceID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		DeletedAt:   e.DeletedAt,
		Version:     e.Version,
		Fields:      e.Fields,
	}.Clone()
}

// ChangeToAPI converts a change to its wire form. Synced is local state and
// is not transferred.
func ChangeToAPI(c Change) api.Change {
	return api.Change{
		ID:         c.ID,
		EntityType: c.EntityType,
		Operation:  string(c.Operation),
		Entity:     EntityToAPI(c.Entity),
		Timestamp:  c.Timestamp,
		ClientID:   c.ClientID,
	}
}

// ChangeFromAPI validates and converts a wire change.
func ChangeFromAPI(c api.Change) (Change, error) {
	op, err := ParseOperation(c.Operation)
	if err != nil {
		return Change{}, fmt.Errorf("change %s: %w", c.ID, err)
	}
	if err := validation.ValidateID("change id", c.ID); err != nil {
		return Change{}, err
	}
	if err := validation.ValidateEntityType(c.EntityType); err != nil {
		return Change{}, fmt.Errorf("change %s: %w", c.ID, err)
	}
	if err := validation.ValidateID("entity id", c.Entity.ID); err != nil {
		return Change{}, fmt.Errorf("change %s: %w", c.ID, err)
	}
	return Change{
		ID:         c.ID,
		EntityType: c.EntityType,
		Operation:  op,
		Entity:     EntityFromAPI(c.Entity),
		Timestamp:  c.Timestamp,
		ClientID:   c.ClientID,
	}, nil
}

// ChangesToAPI converts a batch of changes.
func ChangesToAPI(changes []Change) []api.Change {
	result := make([]api.Change, 0, len(changes))
	for _, c := range changes {
		result = append(result, ChangeToAPI(c))
	}
	return result
}

// ChangesFromAPI converts a batch of wire changes, failing on the first
// invalid one.
func ChangesFromAPI(changes []api.Change) ([]Change, error) {
	result := make([]Change, 0, len(changes))
	for _, c := range changes {
		change, err := ChangeFromAPI(c)
		if err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, nil
}

// ConflictToAPI converts a conflict to its wire form.
func ConflictToAPI(c Conflict) api.Conflict {
	return api.Conflict{
		ID:          c.ID,
		EntityType:  c.EntityType,
		Field:       c.Field,
		Local:       EntityToAPI(c.Local),
		Remote:      EntityToAPI(c.Remote),
		LocalValue:  c.LocalValue,
		RemoteValue: c.RemoteValue,
		Timestamp:   c.Timestamp,
	}
}

// ConflictFromAPI converts a wire conflict.
func ConflictFromAPI(c api.Conflict) Conflict {
	return Conflict{
		ID:          c.ID,
		EntityType:  c.EntityType,
		Field:       c.Field,
		Local:       EntityFromAPI(c.Local),
		Remote:      EntityFromAPI(c.Remote),
		LocalValue:  c.LocalValue,
		RemoteValue: c.RemoteValue,
		Timestamp:   c.Timestamp,
	}
}
