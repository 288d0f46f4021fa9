package embed

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Factory constructs a provider. It may be slow (model load, health check).
type Factory func(ctx context.Context) (Embedder, error)

// Lazy defers provider construction to first use and then reuses the instance
// for the rest of the process. Concurrent first callers share one construction.
// A failed construction is not memoized, so a later call may succeed.
type Lazy struct {
	factory Factory
	dims    int
	model   string

	group singleflight.Group
	mu    sync.RWMutex
	inst  Embedder
}

// NewLazy returns a Lazy embedder. dims and model describe the provider before
// it exists, so callers can check store compatibility without loading it.
func NewLazy(factory Factory, dims int, model string) *Lazy {
	return &Lazy{factory: factory, dims: dims, model: model}
}

var _ Embedder = (*Lazy)(nil)

// Get returns the provider, constructing it on first use.
func (l *Lazy) Get(ctx context.Context) (Embedder, error) {
	l.mu.RLock()
	inst := l.inst
	l.mu.RUnlock()
	if inst != nil {
		return inst, nil
	}

	v, err, _ := l.group.Do("init", func() (any, error) {
		l.mu.RLock()
		existing := l.inst
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		e, err := l.factory(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.inst = e
		l.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Embedder), nil
}

// Loaded reports whether the provider has been constructed.
func (l *Lazy) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.inst != nil
}

// Embed implements Embedder.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}

// EmbedBatch implements Embedder.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return e.EmbedBatch(ctx, texts)
}

// Dimensions returns the configured dimension without loading the provider.
func (l *Lazy) Dimensions() int {
	return l.dims
}

// ModelName returns the configured model without loading the provider.
func (l *Lazy) ModelName() string {
	return l.model
}

// Available loads the provider if needed and asks it.
func (l *Lazy) Available(ctx context.Context) bool {
	e, err := l.Get(ctx)
	return err == nil && e.Available(ctx)
}

// Close closes the provider if it was ever loaded.
func (l *Lazy) Close() error {
	l.mu.Lock()
	inst := l.inst
	l.inst = nil
	l.mu.Unlock()
	if inst == nil {
		return nil
	}
	return inst.Close()
}
