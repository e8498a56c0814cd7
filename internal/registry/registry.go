package registry

import (
	"sync"
	"sync/atomic"
)

// firstAssignableWireID is one past the reserved range (wire id 1 is
// "wtf.event#define", id 2 is ScopeLeave).
const firstAssignableWireID = 3

var nextWireID atomic.Uint32

func init() {
	nextWireID.Store(firstAssignableWireID)
}

// NextEventID returns-and-increments the process-wide wire id counter.
func NextEventID() uint16 {
	return uint16(nextWireID.Add(1) - 1)
}

// NextEventIDs reserves a contiguous block of n wire ids and returns the
// first one.
func NextEventIDs(n int) uint16 {
	if n <= 0 {
		return uint16(nextWireID.Load())
	}
	return uint16(nextWireID.Add(uint32(n)) - uint32(n))
}

// EventRegistry is an append-only, mutex-guarded list of descriptors. No
// descriptor is ever removed.
type EventRegistry struct {
	mu          sync.Mutex
	descriptors []*Descriptor
}

// NewEventRegistry creates an empty EventRegistry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{}
}

// Register appends d to the registry and returns its index.
func (r *EventRegistry) Register(d *Descriptor) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = append(r.descriptors, d)
	return len(r.descriptors) - 1
}

// Len reports the number of registered descriptors.
func (r *EventRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.descriptors)
}

// GetEventDefinitions returns a copied snapshot of descriptors at indices
// [fromIndex, end).
func (r *EventRegistry) GetEventDefinitions(fromIndex int) []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fromIndex >= len(r.descriptors) {
		return nil
	}
	out := make([]*Descriptor, len(r.descriptors)-fromIndex)
	copy(out, r.descriptors[fromIndex:])
	return out
}

// Clear empties the registry. Intended for Runtime.ResetForTesting.
func (r *EventRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = nil
}
