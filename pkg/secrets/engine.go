package secrets

import (
	"context"
	"sort"
	"sync"

	"github.com/rzbill/keel/pkg/types"
)

// Engine decrypts references addressed to it.
type Engine interface {
	// Name is the engine id used in references.
	Name() string
	// Decrypt returns the clear bytes described by params.
	Decrypt(ctx context.Context, params Params) ([]byte, error)
}

// Registry maps engine ids to engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates a registry holding the given engines.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine)}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

// Register adds or replaces an engine.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Engine returns the named engine.
func (r *Registry) Engine(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, types.IllegalArgumentf("no secret engine named %q", name)
	}
	return e, nil
}

// Names lists the registered engine ids in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
