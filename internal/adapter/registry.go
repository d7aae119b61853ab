package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Kind names a backend provider.
type Kind string

const (
	KindMemory Kind = "memory"
	KindHTTP   Kind = "http"
)

var (
	// ErrUnknownKind indicates that no factory is registered for a kind.
	ErrUnknownKind = errors.New("unknown adapter kind")
)

// Options carries the settings a factory may need.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	BaseURL    string
	ClientID   string
	Timeout    time.Duration
	Compress   bool
}

// Factory builds an adapter from options.
type Factory func(opts Options) (SyncAdapter, error)

// Registry maps provider kinds to factories. It is filled once at start-up
// and read afterwards.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// Register binds kind to factory, replacing a previous binding.
func (r *Registry) Register(kind Kind, factory Factory) {
	r.factories[kind] = factory
}

// New builds an adapter of the given kind.
func (r *Registry) New(kind Kind, opts Options) (SyncAdapter, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	a, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter: %w", kind, err)
	}
	return a, nil
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind validates a configured kind against the registry.
func (r *Registry) ParseKind(s string) (Kind, error) {
	kind := Kind(s)
	if _, ok := r.factories[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return kind, nil
}
