package zone

import (
	"fmt"
	"sync"

	"github.com/google/tracing-framework/internal/eventbuf"
)

// Stamper creates a zone for a freshly-allocated task buffer and stamps it
// into the buffer as a frozen SetZone prefix. The runtime implements this,
// since it alone knows how to emit standard events.
type Stamper interface {
	CreateAndStampZone(buf *eventbuf.Buffer, name, typ, location string)
}

type taskState struct {
	nextInstanceID int
	idle           []*eventbuf.Buffer
}

// TaskPool maps task name to a pool of reusable event buffers, so that a
// worker can attribute its events to the task it is currently running
// rather than its physical thread identity.
type TaskPool struct {
	mu    sync.Mutex
	tasks map[string]*taskState
}

// NewTaskPool creates an empty TaskPool.
func NewTaskPool() *TaskPool {
	return &TaskPool{tasks: make(map[string]*taskState)}
}

// PopTaskEventBuffer returns an idle buffer for name if one exists;
// otherwise it creates a new buffer via newBuffer, allocates a zone
// "{name}:{instance_id}" of type "TASK", and has stamper stamp it as the
// buffer's frozen prefix.
func (p *TaskPool) PopTaskEventBuffer(name string, newBuffer func() *eventbuf.Buffer, stamper Stamper) *eventbuf.Buffer {
	p.mu.Lock()
	state, ok := p.tasks[name]
	if !ok {
		state = &taskState{}
		p.tasks[name] = state
	}
	if len(state.idle) > 0 {
		buf := state.idle[len(state.idle)-1]
		state.idle = state.idle[:len(state.idle)-1]
		p.mu.Unlock()
		return buf
	}
	instanceID := state.nextInstanceID
	state.nextInstanceID++
	p.mu.Unlock()

	buf := newBuffer()
	zoneName := fmt.Sprintf("%s:%d", name, instanceID)
	stamper.CreateAndStampZone(buf, zoneName, "TASK", "")
	return buf
}

// PushTaskEventBuffer returns buf to the idle pool for name.
func (p *TaskPool) PushTaskEventBuffer(name string, buf *eventbuf.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.tasks[name]
	if !ok {
		state = &taskState{}
		p.tasks[name] = state
	}
	state.idle = append(state.idle, buf)
}

// Clear empties the task pool. Intended for Runtime.ResetForTesting.
func (p *TaskPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = make(map[string]*taskState)
}
