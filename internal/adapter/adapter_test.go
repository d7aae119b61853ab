package adapter

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter(t *testing.T) {
	e := NewEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var synced, failed []Event
	cancelSynced := e.On(EventSynced, func(ev Event) { synced = append(synced, ev) })
	e.On(EventError, func(ev Event) { failed = append(failed, ev) })

	e.Emit(Event{Type: EventSynced, Payload: 3})
	e.Emit(Event{Type: EventError, Err: errors.New("boom")})
	e.Emit(Event{Type: EventStatus})

	require.Len(t, synced, 1)
	assert.Equal(t, 3, synced[0].Payload)
	assert.False(t, synced[0].Timestamp.IsZero())
	require.Len(t, failed, 1)
	assert.EqualError(t, failed[0].Err, "boom")

	cancelSynced()
	e.Emit(Event{Type: EventSynced})
	assert.Len(t, synced, 1)
}

func TestEmitter_ZeroValueAndPanics(t *testing.T) {
	var e Emitter

	called := false
	e.On(EventConnected, func(Event) { panic("boom") })
	e.On(EventConnected, func(Event) { called = true })

	assert.NotPanics(t, func() { e.Emit(Event{Type: EventConnected}) })
	assert.True(t, called)

	e.Clear()
	called = false
	e.Emit(Event{Type: EventConnected})
	assert.False(t, called)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	mock := &SyncAdapterMock{}

	var got Options
	r.Register(KindMemory, func(opts Options) (SyncAdapter, error) {
		got = opts
		return mock, nil
	})
	r.Register(KindHTTP, func(Options) (SyncAdapter, error) {
		return nil, errors.New("no base url")
	})

	a, err := r.New(KindMemory, Options{ClientID: "client-1"})
	require.NoError(t, err)
	assert.Same(t, mock, a)
	assert.Equal(t, "client-1", got.ClientID)
	assert.NotNil(t, got.Logger, "default logger is filled in")

	_, err = r.New(KindHTTP, Options{})
	assert.ErrorContains(t, err, "no base url")

	_, err = r.New("grpc", Options{})
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Equal(t, []Kind{KindHTTP, KindMemory}, r.Kinds())

	kind, err := r.ParseKind("memory")
	require.NoError(t, err)
	assert.Equal(t, KindMemory, kind)

	_, err = r.ParseKind("firestore")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
