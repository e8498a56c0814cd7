package wtf

import (
	"sync"

	"github.com/google/tracing-framework/internal/platform"
)

// FakeClock is a manually-advanced platform.Clock for deterministic tests.
type FakeClock struct {
	mu  sync.Mutex
	now uint64
}

// NewFakeClock creates a FakeClock starting at the given microsecond value.
func NewFakeClock(start uint64) *FakeClock {
	return &FakeClock{now: start}
}

// NowMicros implements platform.Clock.
func (c *FakeClock) NowMicros() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by delta microseconds and returns the new
// value.
func (c *FakeClock) Advance(delta uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += delta
	return c.now
}

// Set pins the clock to an exact microsecond value.
func (c *FakeClock) Set(now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

var _ platform.Clock = (*FakeClock)(nil)

// FailingWriter accumulates written bytes in memory and fails every write
// once limit bytes have been accepted, simulating a disk-full or broken-pipe
// condition partway through a Save.
type FailingWriter struct {
	mu        sync.Mutex
	dest      []byte
	limit     int
	written   int
	failCalls int
}

// NewFailingWriter creates a FailingWriter that accepts at most limit bytes
// before every subsequent Write call returns an error.
func NewFailingWriter(limit int) *FailingWriter {
	return &FailingWriter{limit: limit}
}

func (w *FailingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written >= w.limit {
		w.failCalls++
		return 0, NewError("FailingWriter.Write", CodeIO, "simulated write failure")
	}

	room := w.limit - w.written
	if len(p) > room {
		p = p[:room]
	}
	w.dest = append(w.dest, p...)
	w.written += len(p)
	return len(p), nil
}

// Bytes returns the bytes accepted so far.
func (w *FailingWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]byte, len(w.dest))
	copy(out, w.dest)
	return out
}

// FailCalls reports how many Write calls observed the injected failure.
func (w *FailingWriter) FailCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failCalls
}

// CallCountingObserver records the number of times each Observer method
// fired, for assertions in tests that exercise a Runtime end to end.
type CallCountingObserver struct {
	mu             sync.Mutex
	eventCalls     int
	saveCalls      int
	chunkAllocated int
}

func (o *CallCountingObserver) ObserveEvent(bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.eventCalls++
}

func (o *CallCountingObserver) ObserveSave(uint64, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saveCalls++
}

func (o *CallCountingObserver) ObserveChunkAllocated() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chunkAllocated++
}

// Counts returns the number of observed calls per method, keyed by name.
func (o *CallCountingObserver) Counts() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return map[string]int{
		"event":           o.eventCalls,
		"save":            o.saveCalls,
		"chunk_allocated": o.chunkAllocated,
	}
}

var _ Observer = (*CallCountingObserver)(nil)
