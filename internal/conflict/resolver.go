// Package conflict detects field level divergence between two versions of an
// entity and resolves it with a configurable strategy.
//
// Resolution is field level last-writer-wins, not a CRDT merge: concurrent
// edits of different fields on both sides survive only when one side is
// strictly newer.
package conflict

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/offsync/internal/models"
)

var (
	// ErrUnknownStrategy indicates that a strategy is not supported.
	ErrUnknownStrategy = errors.New("unknown conflict strategy")

	// ErrNoConflicts indicates that an empty conflict set was passed for resolution.
	ErrNoConflicts = errors.New("no conflicts to resolve")
)

// Resolver detects and resolves conflicts. It never mutates its inputs.
type Resolver struct {
	now   func() time.Time
	newID func() string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source stamped on detected conflicts.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a conflict resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DetectConflicts compares local and remote versions of the same entity.
// A version mismatch in either direction always yields a "version" conflict;
// then every mutable field whose serialized value differs yields its own
// conflict, so resolution can happen per field.
func (r *Resolver) DetectConflicts(entityType string, local, remote models.Entity) []models.Conflict {
	var conflicts []models.Conflict

	if local.Version != remote.Version {
		conflicts = append(conflicts, r.newConflict(entityType, models.FieldVersion, local, remote, local.Version, remote.Version))
	}

	for _, field := range mutableFields(local, remote) {
		localValue, remoteValue := fieldValue(local, field), fieldValue(remote, field)
		if !sameValue(localValue, remoteValue) {
			conflicts = append(conflicts, r.newConflict(entityType, field, local, remote, localValue, remoteValue))
		}
	}

	return conflicts
}

func (r *Resolver) newConflict(entityType, field string, local, remote models.Entity, localValue, remoteValue any) models.Conflict {
	return models.Conflict{
		ID:          r.newID(),
		EntityType:  entityType,
		Field:       field,
		Local:       local.Clone(),
		Remote:      remote.Clone(),
		LocalValue:  localValue,
		RemoteValue: remoteValue,
		Timestamp:   r.now(),
	}
}

// Resolve picks the winning entity for a conflict.
//
// Equal UpdatedAt under last-write-wins resolves to the remote version.
func (r *Resolver) Resolve(c models.Conflict, strategy models.Strategy) (models.Entity, error) {
	return r.ResolveEntity(c.Local, c.Remote, strategy)
}

// ResolveEntity applies strategy to a local/remote pair directly.
func (r *Resolver) ResolveEntity(local, remote models.Entity, strategy models.Strategy) (models.Entity, error) {
	switch strategy {
	case models.StrategyLocal:
		return local.Clone(), nil
	case models.StrategyRemote:
		return remote.Clone(), nil
	case models.StrategyMerge:
		return r.MergeFields(local, remote), nil
	case models.StrategyLastWriteWins:
		if local.IsNewerThan(remote) {
			return local.Clone(), nil
		}
		return remote.Clone(), nil
	default:
		return models.Entity{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// MergeFields builds a new entity based on remote where every local field
// wins when local was updated strictly later. UpdatedAt becomes the later of
// both, Version becomes max(local, remote)+1.
func (r *Resolver) MergeFields(local, remote models.Entity) models.Entity {
	merged := remote.Clone()

	if local.IsNewerThan(remote) {
		for k, v := range local.Clone().Fields {
			if merged.Fields == nil {
				merged.Fields = make(map[string]any, len(local.Fields))
			}
			merged.Fields[k] = v
		}
		merged.DeletedAt = local.Clone().DeletedAt
		merged.UpdatedAt = local.UpdatedAt
	}

	merged.Version = max(local.Version, remote.Version) + 1
	return merged
}

// ResolveAll resolves a set of conflicts that may span several entities and
// returns one resolved entity per entity id, ordered by first appearance.
func (r *Resolver) ResolveAll(conflicts []models.Conflict, strategy models.Strategy) ([]models.Entity, error) {
	if len(conflicts) == 0 {
		return nil, ErrNoConflicts
	}

	groups := GroupByEntity(conflicts)
	resolved := make([]models.Entity, 0, len(groups))
	for _, group := range groups {
		entity, err := r.Resolve(group[0], strategy)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, entity)
	}
	return resolved, nil
}

// GroupByEntity groups conflicts by entity id preserving first appearance order.
func GroupByEntity(conflicts []models.Conflict) [][]models.Conflict {
	index := make(map[string]int)
	var groups [][]models.Conflict
	for _, c := range conflicts {
		id := c.EntityID()
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// mutableFields lists the comparable fields of both versions, excluding the
// immutable id, workspaceId and createdAt and the separately handled version.
func mutableFields(local, remote models.Entity) []string {
	keys := make(map[string]struct{}, len(local.Fields)+len(remote.Fields))
	for k := range local.Fields {
		keys[k] = struct{}{}
	}
	for k := range remote.Fields {
		keys[k] = struct{}{}
	}

	fields := make([]string, 0, len(keys))
	for k := range keys {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	return append([]string{models.FieldUpdatedAt, models.FieldDeletedAt}, fields...)
}

func fieldValue(e models.Entity, field string) any {
	switch field {
	case models.FieldUpdatedAt:
		return e.UpdatedAt
	case models.FieldDeletedAt:
		if e.DeletedAt == nil {
			return nil
		}
		return *e.DeletedAt
	default:
		v, _ := e.Get(field)
		return v
	}
}

// sameValue compares values by their JSON encoding.
func sameValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
