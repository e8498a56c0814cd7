// Package zone implements the zone registry (named event producers) and the
// task pool that hands out reusable event buffers keyed by task name.
package zone

import "sync"

// Definition describes one zone: a logical producer in the trace, such as
// a thread or a named task queue.
type Definition struct {
	ID       int32
	Name     string
	Type     string
	Location string
}

// Registry is an append-only, mutex-guarded list of zone definitions.
type Registry struct {
	mu          sync.Mutex
	definitions []Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// CreateZone registers a new zone and returns its id, starting from 1.
func (r *Registry) CreateZone(name, typ, location string) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := int32(len(r.definitions) + 1)
	r.definitions = append(r.definitions, Definition{
		ID:       id,
		Name:     name,
		Type:     typ,
		Location: location,
	})
	return id
}

// Len reports how many zones have been registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.definitions)
}

// Definitions returns a copied snapshot of definitions at indices
// [fromIndex, end).
func (r *Registry) Definitions(fromIndex int) []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fromIndex >= len(r.definitions) {
		return nil
	}
	out := make([]Definition, len(r.definitions)-fromIndex)
	copy(out, r.definitions[fromIndex:])
	return out
}

// Clear empties the registry. Intended for Runtime.ResetForTesting.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions = nil
}
