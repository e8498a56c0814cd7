package eventbuf

import "sync/atomic"

// chunk is a fixed-size slot array within an event buffer. Event buffers
// chain many chunks as they overflow. A chunk has exactly one writer (the
// producer that owns the buffer) and at most one concurrent reader (the
// save pipeline); the two sides coordinate only through publishedSize and
// next.
type chunk struct {
	limit int
	slots []uint32

	// size is writer-owned: the next index a write will land at. Readers
	// never touch it directly.
	size int

	// publishedSize is the writer's acquire/release-guarded promise that
	// slots [0, publishedSize) are fully initialised and safe to read.
	publishedSize atomic.Uint32

	// skipCount is reader-owned: slots [0, skipCount) have already been
	// serialised and drained out of the chunk.
	skipCount int

	// next links to the successor chunk once this one has overflowed.
	// Writing it with release ordering is the signal that this chunk's
	// size and publishedSize are final.
	next atomic.Pointer[chunk]
}

func newChunk(limit int) *chunk {
	return &chunk{limit: limit, slots: make([]uint32, limit)}
}

// publish stores the chunk's current writer-side size into publishedSize.
func (c *chunk) publish() {
	c.publishedSize.Store(uint32(c.size))
}

// availableToRead returns how many published-but-undrained slots the
// reader can currently see, given the chunk's already-loaded published
// size (the caller is responsible for the next-then-publishedSize load
// order documented on Buffer.WriteTo).
func (c *chunk) availableToRead(published int) int {
	return published - c.skipCount
}
