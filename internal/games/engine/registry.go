package engine

import (
	"fmt"
	"sort"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
)

// Registry resolves engines by game id. Build it once at startup and pass it
// to whoever needs it; it is read-only after construction.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry registers every engine, failing on duplicates or unknown kinds.
func NewRegistry(engines ...Engine) (*Registry, error) {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		if err := r.register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(e Engine) error {
	if e == nil || e.ID() == "" {
		return fmt.Errorf("engine without id")
	}
	if !e.Kind().Valid() {
		return fmt.Errorf("engine %s: unknown kind %q", e.ID(), e.Kind())
	}
	if _, dup := r.engines[e.ID()]; dup {
		return fmt.Errorf("engine %s registered twice", e.ID())
	}
	r.engines[e.ID()] = e
	return nil
}

// Get returns the engine for gameID or a NOT_FOUND error.
func (r *Registry) Get(gameID string) (Engine, error) {
	e, ok := r.engines[gameID]
	if !ok {
		return nil, apperr.NotFound("unknown game %q", gameID)
	}
	return e, nil
}

// List returns engines sorted by id. An empty kind lists all of them.
func (r *Registry) List(kind Kind) []Engine {
	out := make([]Engine, 0, len(r.engines))
	for _, e := range r.engines {
		if kind == "" || e.Kind() == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
