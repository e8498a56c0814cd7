// Package wtf is an in-process event tracing library compatible with the
// Web Tracing Framework's chunked binary trace format. Producers emit
// instant and scoped events through a Runtime-issued Producer; a Runtime
// periodically serializes every live producer's buffer, plus the event and
// zone definitions that describe how to read them, to an io.Writer or a
// file on disk.
package wtf

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	natefinchatomic "github.com/natefinch/atomic"
	"github.com/orcaman/writerseeker"

	"github.com/google/tracing-framework/internal/eventbuf"
	"github.com/google/tracing-framework/internal/platform"
	"github.com/google/tracing-framework/internal/registry"
	"github.com/google/tracing-framework/internal/stringtable"
	"github.com/google/tracing-framework/internal/wire"
	"github.com/google/tracing-framework/internal/zone"
)

// firstEventsChunkID is the id of the first events chunk in a fresh file;
// id 1 is permanently reserved for the file header chunk.
const firstEventsChunkID = 2

// SaveCheckpoint tracks how much of the runtime's accumulated state has
// already been written to a trace, so repeated saves to the same
// destination emit only the delta: new event definitions, new zones, and
// whatever each buffer has produced since its last drain.
type SaveCheckpoint struct {
	NeedsFileHeader          bool
	EventDefinitionFromIndex int
	ZoneDefinitionFromIndex  int
}

// SaveOptions controls one Save or SaveToFile call.
type SaveOptions struct {
	// Append, for SaveToFile only, appends to an existing file instead of
	// truncating it. If the target is missing or empty, the checkpoint is
	// reset regardless of this runtime's prior save history, so the file
	// still gets a complete, self-describing header and definition set.
	Append bool
	// ClearThreadData drains each producer's buffer as its events are
	// written, freeing chunks that have been fully serialized. With it
	// false, Save takes a repeatable snapshot without mutating producer
	// state, which is mainly useful for tests.
	ClearThreadData bool
}

// Runtime owns every piece of process-wide tracer state: the shared string
// table, the event and zone registries, the task pool, and the list of
// live producer buffers. Most programs use the process-wide singleton
// returned by GetRuntime, but tests typically construct their own with
// NewRuntime to get full isolation.
type Runtime struct {
	mu      sync.Mutex
	buffers []*eventbuf.Buffer

	stringTable   *stringtable.Table
	clock         platform.Clock
	eventRegistry *registry.EventRegistry
	zoneRegistry  *zone.Registry
	taskPool      *zone.TaskPool
	standard      *standardEvents
	metrics       *Metrics
	observer      Observer

	chunkLimitSlots int

	checkpoint  SaveCheckpoint
	nextChunkID uint32
	uniquifier  uint64
	frameNumber uint32
}

// NewRuntime constructs an independent Runtime configured by cfg.
func NewRuntime(cfg Config) *Runtime {
	er := registry.NewEventRegistry()
	rt := &Runtime{
		stringTable:     stringtable.New(),
		clock:           platform.Default(),
		eventRegistry:   er,
		zoneRegistry:    zone.NewRegistry(),
		taskPool:        zone.NewTaskPool(),
		metrics:         NewMetrics(),
		observer:        NoOpObserver{},
		chunkLimitSlots: cfg.ChunkLimitSlots,
		checkpoint:      SaveCheckpoint{NeedsFileHeader: true},
		nextChunkID:     firstEventsChunkID,
	}
	rt.standard = newStandardEvents(er)
	return rt
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// GetRuntime returns the process-wide Runtime singleton, built from
// DefaultConfig on first use.
func GetRuntime() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime(DefaultConfig())
	})
	return defaultRuntime
}

// SetObserver installs obs as rt's metrics observer, replacing whatever was
// there before. Pass NoOpObserver{} to detach.
func (rt *Runtime) SetObserver(obs Observer) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.observer = obs
}

// Metrics returns rt's metrics instance.
func (rt *Runtime) Metrics() *Metrics {
	return rt.metrics
}

// NewEvent registers a new event descriptor with rt and returns it. Call
// sites typically do this once, at package init or first use, and reuse
// the returned descriptor for every subsequent EmitInstant/EnterScope call
// at that site. nameSpec follows the "Namespace::Class#Method:arg1,arg2"
// convention NewDescriptor parses; see EventDescriptor.
func (rt *Runtime) NewEvent(class EventClass, flags EventFlags, nameSpec string, argTypes ...ArgType) *EventDescriptor {
	d := registry.NewDescriptor(registry.NextEventID(), class, flags, nameSpec, argTypes)
	rt.eventRegistry.Register(d)
	return d
}

// FrameStart emits a "wtf.timing#frameStart" record for ctx's Producer,
// tagged with an internally tracked frame counter so callers don't need to
// track their own render-loop index. It is a no-op if ctx carries no
// Producer. Pair every call with a matching FrameEnd.
func (rt *Runtime) FrameStart(ctx context.Context) {
	p, ok := ProducerFromContext(ctx)
	if !ok {
		return
	}
	rt.mu.Lock()
	n := rt.frameNumber
	rt.mu.Unlock()
	rt.standard.FrameStart(p.buffer, rt, n)
	rt.recordEvent(false, false)
}

// FrameEnd emits a "wtf.timing#frameEnd" record carrying the same frame
// number as the most recent FrameStart, then advances the counter so the
// next FrameStart/FrameEnd pair gets the next index. It is a no-op if ctx
// carries no Producer.
func (rt *Runtime) FrameEnd(ctx context.Context) {
	p, ok := ProducerFromContext(ctx)
	if !ok {
		return
	}
	rt.mu.Lock()
	n := rt.frameNumber
	rt.frameNumber++
	rt.mu.Unlock()
	rt.standard.FrameEnd(p.buffer, rt, n)
	rt.recordEvent(false, false)
}

func (rt *Runtime) recordEvent(isScopeEnter, isScopeLeave bool) {
	rt.metrics.RecordEvent(isScopeEnter, isScopeLeave)
	rt.observer.ObserveEvent(isScopeEnter, isScopeLeave)
}

func (rt *Runtime) recordChunkAllocated() {
	rt.metrics.RecordChunkAllocated()
	rt.observer.ObserveChunkAllocated()
}

func (rt *Runtime) chunkLimit() int {
	if rt.chunkLimitSlots <= 0 {
		return eventbuf.DefaultChunkSlots
	}
	return rt.chunkLimitSlots
}

func (rt *Runtime) newBuffer() *eventbuf.Buffer {
	buf := eventbuf.New(rt.chunkLimit())
	buf.OnChunkAllocated = rt.recordChunkAllocated
	rt.mu.Lock()
	rt.buffers = append(rt.buffers, buf)
	rt.mu.Unlock()
	return buf
}

// CreateAndStampZone implements zone.Stamper: it registers a new zone for
// buf's producer and stamps a SetZone record as the buffer's frozen
// prefix, so the zone association survives every future serialization of
// buf regardless of how much of its ring has since been drained.
func (rt *Runtime) CreateAndStampZone(buf *eventbuf.Buffer, name, typ, location string) {
	zoneID := rt.zoneRegistry.CreateZone(name, typ, location)
	rt.standard.SetZone(buf, rt, zoneID)
	buf.FreezePrefixSlots()
}

// EnableCurrentThread installs a Producer into ctx under the name, type,
// and source location given, unless ctx already carries one, in which case
// the existing Producer is reused and reattached unchanged. This is the
// context-based substitute for installing a producer into thread-local
// storage: the Go goroutine that later calls EmitInstant/EnterScope on the
// returned context (or a descendant of it) is what plays the role of "the
// current thread".
func (rt *Runtime) EnableCurrentThread(ctx context.Context, name, typ, location string) (context.Context, *Producer) {
	if p, ok := ProducerFromContext(ctx); ok {
		return ctx, p
	}

	buf := rt.newBuffer()
	rt.mu.Lock()
	rt.uniquifier++
	u := rt.uniquifier
	rt.mu.Unlock()

	zoneName := fmt.Sprintf("%d:%s", u, name)
	rt.CreateAndStampZone(buf, zoneName, typ, location)

	p := &Producer{runtime: rt, buffer: buf}
	return WithProducer(ctx, p), p
}

// RegisterExternalProducer creates a Producer for an event source that has
// no goroutine of its own to carry a context (a callback from a C library,
// a GPU completion queue). The caller owns the returned Producer directly
// and is responsible for calling Flush and, once done, SetOutOfScope on its
// buffer.
func (rt *Runtime) RegisterExternalProducer(name, typ, location string) *Producer {
	buf := rt.newBuffer()
	rt.CreateAndStampZone(buf, name, typ, location)
	return &Producer{runtime: rt, buffer: buf}
}

// PopTaskEventBuffer returns a Producer backed by an idle buffer from the
// named task pool, or a freshly zoned one if the pool is empty. Pair every
// call with PushTaskEventBuffer once the task finishes its unit of work, so
// the buffer (and its zone identity) can be reused by the next one.
func (rt *Runtime) PopTaskEventBuffer(name string) *Producer {
	buf := rt.taskPool.PopTaskEventBuffer(name, rt.newBuffer, rt)
	return &Producer{runtime: rt, buffer: buf}
}

// PushTaskEventBuffer returns p's buffer to the named task pool for reuse.
// p must not be used again after this call.
func (rt *Runtime) PushTaskEventBuffer(name string, p *Producer) {
	rt.taskPool.PushTaskEventBuffer(name, p.buffer)
}

// writeDefinitionsChunk emits a synthetic events chunk describing every
// event and zone definition registered since the last checkpoint. Real
// producers never see this buffer; it exists only for the duration of one
// Save call.
func (rt *Runtime) writeDefinitionsChunk(s *wire.Sink) (ok bool, newEventEnd, newZoneEnd int) {
	defs := eventbuf.New(eventbuf.MinChunkSlots)

	newDefs := rt.eventRegistry.GetEventDefinitions(rt.checkpoint.EventDefinitionFromIndex)
	for _, d := range newDefs {
		rt.standard.DefineEvent(defs, rt, d)
	}
	newZones := rt.zoneRegistry.Definitions(rt.checkpoint.ZoneDefinitionFromIndex)
	for _, zd := range newZones {
		rt.standard.CreateZone(defs, rt, zd.ID, zd.Name, zd.Type, zd.Location)
	}
	defs.Flush()

	chunkID := rt.nextChunkID
	rt.nextChunkID++
	ok = rt.writeBufferChunk(s, chunkID, defs, false)
	return ok, rt.checkpoint.EventDefinitionFromIndex + len(newDefs), rt.checkpoint.ZoneDefinitionFromIndex + len(newZones)
}

// writeBufferChunk serializes one events chunk for buf: a string-table part
// followed by an event-slots part, per the wire format's fixed part order.
// The event part is populated first so any string id it references is
// guaranteed already counted by the time the string-table part is sized.
func (rt *Runtime) writeBufferChunk(s *wire.Sink, chunkID uint32, buf *eventbuf.Buffer, clearData bool) bool {
	var eventHeader, stringHeader wire.PartHeader
	buf.PopulateHeader(&eventHeader)

	stringCount := rt.stringTable.Len()
	rt.stringTable.PopulateHeader(&stringHeader, stringCount)

	parts := []wire.PartHeader{stringHeader, eventHeader}
	ts := uint32(rt.clock.NowMicros())
	s.StartChunk(wire.ChunkHeader{ID: chunkID, Type: wire.ChunkTypeEvents, StartTime: ts, EndTime: ts}, parts)

	rt.stringTable.WriteTo(s, stringCount)
	ok := buf.WriteTo(&parts[1], s, clearData)
	return ok && !s.Failed()
}

// Save serializes this runtime's accumulated state to sink: a file header
// and the full definition set on the first call, an incremental
// definitions-and-events delta on every call after that. It returns a
// CodeIO error if any underlying write failed, or a CodeConsistency error
// if a buffer held fewer slots than its part header promised.
func (rt *Runtime) Save(sink io.Writer, opts SaveOptions) error {
	start := rt.clock.NowMicros()

	rt.mu.Lock()
	buffers := make([]*eventbuf.Buffer, len(rt.buffers))
	copy(buffers, rt.buffers)
	rt.mu.Unlock()

	s := wire.NewSink(sink)

	if rt.checkpoint.NeedsFileHeader {
		wire.WriteFilePrefix(s)
		wire.WriteFileHeaderChunk(s)
	}

	ok, newEventEnd, newZoneEnd := rt.writeDefinitionsChunk(s)

	for _, buf := range buffers {
		chunkID := rt.nextChunkID
		rt.nextChunkID++
		ok = rt.writeBufferChunk(s, chunkID, buf, opts.ClearThreadData) && ok
	}

	var saveErr error
	if !ok || s.Failed() {
		code := CodeIO
		if !s.Failed() {
			code = CodeConsistency
		}
		saveErr = NewError("Save", code, "save failed partway through, destination is left in an inconsistent state")
	} else {
		rt.mu.Lock()
		rt.checkpoint.NeedsFileHeader = false
		rt.checkpoint.EventDefinitionFromIndex = newEventEnd
		rt.checkpoint.ZoneDefinitionFromIndex = newZoneEnd
		rt.mu.Unlock()
	}

	elapsedMicros := rt.clock.NowMicros() - start
	rt.metrics.RecordSave(s.Written(), elapsedMicros*1000, saveErr)
	rt.observer.ObserveSave(s.Written(), elapsedMicros*1000, saveErr)
	return saveErr
}

// SaveToFile saves to path. In truncate mode (the default) the whole file
// is rebuilt from scratch via an atomic rename, so a crash mid-write never
// leaves a corrupt trace behind; the checkpoint is reset first so the
// rebuilt file is self-contained. In append mode, bytes are appended
// directly to the existing file descriptor, and the checkpoint is reset
// only if the file is missing or empty.
func (rt *Runtime) SaveToFile(path string, opts SaveOptions) error {
	if opts.Append {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			rt.mu.Lock()
			rt.checkpoint = SaveCheckpoint{NeedsFileHeader: true}
			rt.nextChunkID = firstEventsChunkID
			rt.mu.Unlock()
		}

		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return WrapError("SaveToFile", err)
		}
		defer f.Close()
		return rt.Save(f, opts)
	}

	rt.mu.Lock()
	rt.checkpoint = SaveCheckpoint{NeedsFileHeader: true}
	rt.nextChunkID = firstEventsChunkID
	rt.mu.Unlock()

	var staging writerseeker.WriterSeeker
	if err := rt.Save(&staging, opts); err != nil {
		return err
	}
	if err := natefinchatomic.WriteFile(path, staging.Reader()); err != nil {
		return WrapError("SaveToFile", err)
	}
	return nil
}

// ClearThreadData walks every live producer buffer with a dummy,
// discard-sink serialization, exactly as a Save with ClearThreadData would,
// advancing each buffer's drain cursor and freeing its fully-read chunks
// without emitting anything anywhere. Buffers stay registered with rt and
// their Producer handles remain usable: only the already-written data is
// dropped, not the runtime's record of the buffer itself. The task pool's
// idle reuse associations are forgotten, though the buffers they pointed at
// are unaffected and keep accumulating whatever their owners write next.
func (rt *Runtime) ClearThreadData() {
	rt.mu.Lock()
	buffers := make([]*eventbuf.Buffer, len(rt.buffers))
	copy(buffers, rt.buffers)
	rt.mu.Unlock()

	discard := wire.NewSink(io.Discard)
	for _, buf := range buffers {
		var header wire.PartHeader
		buf.PopulateHeader(&header)
		buf.WriteTo(&header, discard, true)
	}

	rt.taskPool.Clear()
}

// ResetForTesting clears this runtime's thread-buffer list and task pool,
// and resets its save checkpoint, but deliberately leaves the event and
// zone registries and the global wire id counter untouched: descriptors
// built by package-level var initializers in test binaries must keep
// referring to valid, already-registered wire ids across resets.
func (rt *Runtime) ResetForTesting() {
	rt.mu.Lock()
	rt.buffers = nil
	rt.checkpoint = SaveCheckpoint{NeedsFileHeader: true}
	rt.nextChunkID = firstEventsChunkID
	rt.mu.Unlock()
	rt.taskPool.Clear()
	rt.metrics.Reset()
}

var _ zone.Stamper = (*Runtime)(nil)
