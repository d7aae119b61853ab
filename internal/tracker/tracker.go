// Package tracker records local entity mutations as immutable changes and
// tracks their synchronization status.
package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/validation"
)

// DefaultHistorySize is the number of exported change logs kept in memory.
const DefaultHistorySize = 10

var (
	// ErrInvalidChange indicates that a change is missing its entity type or entity id.
	ErrInvalidChange = errors.New("invalid change")
)

// Tracker хранит изменения в порядке их добавления.
// Все методы безопасны для конкурентного вызова.
type Tracker struct {
	changes     map[string]models.Change // map[id]change
	now         func() time.Time
	clientID    string
	order       []string
	history     []models.ChangeLog
	historySize int
	version     int64
	mu          sync.RWMutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used to stamp changes.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithHistorySize bounds the number of change logs kept by ExportChangeLog.
func WithHistorySize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.historySize = n
		}
	}
}

// New creates a tracker for the given client. An empty clientID is replaced
// by a random one.
func New(clientID string, opts ...Option) *Tracker {
	if clientID == "" {
		clientID = uuid.New().String()
	}
	t := &Tracker{
		changes:     make(map[string]models.Change),
		clientID:    clientID,
		now:         time.Now,
		historySize: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ClientID returns the id stamped on every tracked change.
func (t *Tracker) ClientID() string {
	return t.clientID
}

// Track records a mutation of entity and returns the stored change.
func (t *Tracker) Track(entityType string, op models.Operation, entity models.Entity) (models.Change, error) {
	if err := validation.ValidateEntityType(entityType); err != nil {
		return models.Change{}, fmt.Errorf("%w: %w", ErrInvalidChange, err)
	}
	if err := validation.ValidateID("entity id", entity.ID); err != nil {
		return models.Change{}, fmt.Errorf("%w: %w", ErrInvalidChange, err)
	}
	if !op.Valid() {
		return models.Change{}, fmt.Errorf("%w: unknown operation %q", ErrInvalidChange, op)
	}

	now := t.now()
	change := models.Change{
		ID:         t.newID(now),
		EntityType: entityType,
		Operation:  op,
		Entity:     entity.Clone(),
		Timestamp:  now,
		ClientID:   t.clientID,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.changes[change.ID] = change
	t.order = append(t.order, change.ID)

	return change.Clone(), nil
}

// newID builds a change id from (clientID, timestamp, random).
func (t *Tracker) newID(now time.Time) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s", t.clientID, now.UnixMilli(), random)
}

// GetUnsynced returns all changes not yet synced, in insertion order.
func (t *Tracker) GetUnsynced() []models.Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]models.Change, 0, len(t.order))
	for _, id := range t.order {
		change := t.changes[id]
		if !change.Synced {
			result = append(result, change.Clone())
		}
	}
	return result
}

// MarkSynced flips the synced flag of the given changes. Unknown ids and
// already synced changes are ignored. Returns the number of changes flipped.
func (t *Tracker) MarkSynced(ids ...string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	marked := 0
	for _, id := range ids {
		change, exists := t.changes[id]
		if !exists || change.Synced {
			continue
		}
		change.Synced = true
		t.changes[id] = change
		marked++
	}
	return marked
}

// IsSynced reports whether the change with id is known and synced.
func (t *Tracker) IsSynced(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	change, exists := t.changes[id]
	return exists && change.Synced
}

// ClearSynced drops every synced change, keeping unsynced ones in order.
// Returns the number of removed changes.
func (t *Tracker) ClearSynced() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.order[:0]
	removed := 0
	for _, id := range t.order {
		if t.changes[id].Synced {
			delete(t.changes, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return removed
}

// GetChangesForEntity returns every change, synced or not, that references entityID.
func (t *Tracker) GetChangesForEntity(entityID string) []models.Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []models.Change
	for _, id := range t.order {
		change := t.changes[id]
		if change.Entity.ID == entityID {
			result = append(result, change.Clone())
		}
	}
	return result
}

// ExportChangeLog snapshots the unsynced changes into a new versioned change
// log and appends it to the bounded history.
func (t *Tracker) ExportChangeLog() models.ChangeLog {
	unsynced := t.GetUnsynced()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.version++
	log := models.ChangeLog{
		Version:   t.version,
		Changes:   unsynced,
		CreatedAt: t.now(),
		ClientID:  t.clientID,
	}

	t.history = append(t.history, log)
	if len(t.history) > t.historySize {
		t.history = t.history[len(t.history)-t.historySize:]
	}

	return log
}

// History returns the exported change logs, oldest first.
func (t *Tracker) History() []models.ChangeLog {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]models.ChangeLog, len(t.history))
	copy(result, t.history)
	return result
}

// Restore loads changes persisted by the host application, preserving their
// order. Changes already tracked are left untouched.
func (t *Tracker) Restore(changes []models.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, change := range changes {
		if _, exists := t.changes[change.ID]; exists {
			continue
		}
		t.changes[change.ID] = change.Clone()
		t.order = append(t.order, change.ID)
	}
}

// All returns every tracked change in insertion order.
func (t *Tracker) All() []models.Change {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]models.Change, 0, len(t.order))
	for _, id := range t.order {
		result = append(result, t.changes[id].Clone())
	}
	return result
}

// Len returns the number of tracked changes.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.order)
}
