// Package eventbuf implements the per-producer chunked slot ring that is
// the core data structure of the tracer: a single-writer, single-reader
// lock-free handoff between the thread emitting events and the save
// pipeline serialising them.
package eventbuf

import (
	"sync/atomic"

	"github.com/google/tracing-framework/internal/wire"
)

// DefaultChunkSlots is the default chunk capacity: 16384 bytes / 4 bytes
// per slot.
const DefaultChunkSlots = 16384 / 4

// MinChunkSlots is the minimum chunk capacity, and therefore also
// MaxAddSlotsCount: the hard upper bound on a single event's slot count.
const MinChunkSlots = 256

// MaxAddSlotsCount is the largest n a single AddSlots call may request.
// Exceeding it is a programmer error (§4.4).
const MaxAddSlotsCount = MinChunkSlots

// Buffer is a per-producer chunked event slot ring. Producer-side methods
// (AddSlots, Flush, FreezePrefixSlots) must only ever be called from the
// single goroutine that owns the buffer. Reader-side methods
// (PopulateHeader, WriteTo) must only ever be called from a single
// goroutine at a time (typically the save pipeline), but may run
// concurrently with the producer.
type Buffer struct {
	// head is reader-owned: it only ever advances, and only the reader
	// goroutine reads or writes it.
	head *chunk
	// current is writer-owned: the chunk new slots are carved from.
	current *chunk

	chunkLimit int

	frozenPrefixSlots []uint32

	outOfScope atomic.Bool

	// OnChunkAllocated, if set, is invoked whenever the overflow path
	// brings a new chunk online. Runtimes wire this to their metrics.
	OnChunkAllocated func()
}

// New creates an empty Buffer whose overflow chunks have chunkLimit slots
// of capacity. chunkLimit is clamped up to MinChunkSlots.
func New(chunkLimit int) *Buffer {
	if chunkLimit < MinChunkSlots {
		chunkLimit = MinChunkSlots
	}
	first := newChunk(chunkLimit)
	return &Buffer{
		head:       first,
		current:    first,
		chunkLimit: chunkLimit,
	}
}

// AddSlots returns a mutable slice of n consecutive uninitialised slots and
// advances the writer-private size. Panics if n exceeds MaxAddSlotsCount,
// per the documented programmer-error precondition.
func (b *Buffer) AddSlots(n int) []uint32 {
	if n > MaxAddSlotsCount {
		panic("eventbuf: AddSlots n exceeds MaxAddSlotsCount")
	}
	c := b.current
	if c.size+n <= c.limit {
		start := c.size
		c.size += n
		return c.slots[start:c.size]
	}
	return b.expandAndAddSlots(n)
}

// expandAndAddSlots implements the overflow path: publish the current
// chunk's final size, allocate and link a new one, then carve n slots from
// it.
func (b *Buffer) expandAndAddSlots(n int) []uint32 {
	b.current.publish()

	next := newChunk(b.chunkLimit)
	next.size = n

	// Release-store: once this is visible, the reader is guaranteed the
	// previous chunk will receive no further writes.
	b.current.next.Store(next)
	b.current = next

	if b.OnChunkAllocated != nil {
		b.OnChunkAllocated()
	}

	return next.slots[:n]
}

// Flush publishes the current chunk's writer-private size with release
// ordering, making slots up to that point visible to a concurrent reader.
// Flush must be called before relinquishing control to anything that might
// read the buffer.
func (b *Buffer) Flush() {
	b.current.publish()
}

// FreezePrefixSlots moves the currently-written slots of the current chunk
// into the buffer's immutable frozen prefix, then resets the chunk back to
// empty. The frozen prefix is re-emitted on every subsequent serialisation
// of this buffer. Calling it on an empty buffer is a no-op.
func (b *Buffer) FreezePrefixSlots() {
	c := b.current
	if c.size == 0 {
		return
	}
	b.frozenPrefixSlots = append(b.frozenPrefixSlots, c.slots[:c.size]...)
	c.size = 0
	c.publishedSize.Store(0)
}

// SetOutOfScope marks the buffer's owning producer as gone. It is safe to
// call concurrently with producer or reader activity.
func (b *Buffer) SetOutOfScope() {
	b.outOfScope.Store(true)
}

// OutOfScope reports whether the owning producer has been marked gone.
func (b *Buffer) OutOfScope() bool {
	return b.outOfScope.Load()
}

// PopulateHeader computes the part header this buffer would serialise to
// right now: type 0x20002, offset 0, and a length in bytes equal to the
// frozen prefix plus every chunk's unread slots.
func (b *Buffer) PopulateHeader(header *wire.PartHeader) {
	slots := len(b.frozenPrefixSlots)
	for c := b.head; c != nil; {
		// Acquire next before publishedSize: once next is non-nil the
		// writer has committed to it and c's publishedSize is final.
		next := c.next.Load()
		published := int(c.publishedSize.Load())
		if avail := c.availableToRead(published); avail > 0 {
			slots += avail
		}
		c = next
	}
	header.Type = wire.PartTypeEventSlots
	header.Offset = 0
	header.Length = uint32(slots) * 4
}

// WriteTo writes the frozen prefix followed by every chunk's unread slots,
// up to the byte budget in header.Length, then aligns the sink. If
// clearWrittenData is true, drained chunks at the head of the list are
// freed and head is advanced past them. It returns false if the buffer
// turned out to hold fewer slots than header.Length promised, which
// indicates a caller ordering bug (PopulateHeader must run immediately
// before WriteTo with no intervening FreezePrefixSlots).
func (b *Buffer) WriteTo(header *wire.PartHeader, s *wire.Sink, clearWrittenData bool) bool {
	slotsRemaining := int(header.Length / 4)

	n := len(b.frozenPrefixSlots)
	if n > slotsRemaining {
		n = slotsRemaining
	}
	for _, v := range b.frozenPrefixSlots[:n] {
		s.AppendU32(v)
	}
	slotsRemaining -= n

	c := b.head
	for c != nil && slotsRemaining > 0 {
		next := c.next.Load()
		published := int(c.publishedSize.Load())
		avail := c.availableToRead(published)
		if avail < 0 {
			return false
		}

		toWrite := avail
		if toWrite > slotsRemaining {
			toWrite = slotsRemaining
		}
		for _, v := range c.slots[c.skipCount : c.skipCount+toWrite] {
			s.AppendU32(v)
		}
		slotsRemaining -= toWrite

		if clearWrittenData {
			c.skipCount += toWrite
			if next != nil && c.skipCount == published && c == b.head {
				b.head = next
			}
		}

		c = next
	}

	s.Align()
	return slotsRemaining == 0
}
