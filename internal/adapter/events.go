package adapter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventType identifies an adapter event.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventSynced       EventType = "synced"
	EventError        EventType = "error"
	EventStatus       EventType = "status"
)

// Event is emitted by adapters for observability.
type Event struct {
	Timestamp time.Time
	Payload   any
	Err       error
	Type      EventType
}

// Handler receives adapter events.
type Handler func(Event)

// Emitter is a listener set keyed by event type. The zero value is ready to use.
type Emitter struct {
	handlers map[EventType]map[int]Handler
	logger   *slog.Logger
	nextID   int
	mu       sync.RWMutex
}

// NewEmitter creates an emitter that logs handler panics with logger.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{logger: logger}
}

// On registers handler for eventType.
func (e *Emitter) On(eventType EventType, handler Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[EventType]map[int]Handler)
	}
	if e.handlers[eventType] == nil {
		e.handlers[eventType] = make(map[int]Handler)
	}
	id := e.nextID
	e.nextID++
	e.handlers[eventType][id] = handler

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[eventType], id)
	}
}

// Emit delivers event synchronously to every handler of its type. A
// panicking handler does not affect the others.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[event.Type]))
	for _, h := range e.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		e.call(h, event)
	}
}

func (e *Emitter) call(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil && e.logger != nil {
			e.logger.Error("Adapter event handler panicked", "event", event.Type, "panic", fmt.Sprint(r))
		}
	}()
	h(event)
}

// Clear removes every handler.
func (e *Emitter) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = nil
}
