package eventbuf

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/tracing-framework/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBufferHeader(t *testing.T) {
	b := New(MinChunkSlots)

	var header wire.PartHeader
	b.PopulateHeader(&header)

	assert.Equal(t, wire.PartTypeEventSlots, header.Type)
	assert.EqualValues(t, 0, header.Offset)
	assert.EqualValues(t, 0, header.Length)
}

func TestSingleFourSlotEvent(t *testing.T) {
	b := New(MinChunkSlots)

	slots := b.AddSlots(4)
	slots[0], slots[1], slots[2], slots[3] = 44, 45, 46, 47
	b.Flush()

	var header wire.PartHeader
	b.PopulateHeader(&header)
	assert.EqualValues(t, wire.PartTypeEventSlots, header.Type)
	assert.EqualValues(t, 16, header.Length)

	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	ok := b.WriteTo(&header, sink, false)
	require.True(t, ok)

	expected := []byte{44, 0, 0, 0, 45, 0, 0, 0, 46, 0, 0, 0, 47, 0, 0, 0}
	assert.Equal(t, expected, buf.Bytes())
}

func TestAddSlotsPanicsOverMax(t *testing.T) {
	b := New(MinChunkSlots)
	assert.Panics(t, func() {
		b.AddSlots(MaxAddSlotsCount + 1)
	})
}

func TestFreezePrefixSlotsOnEmptyBufferIsNoOp(t *testing.T) {
	b := New(MinChunkSlots)
	b.FreezePrefixSlots()

	var header wire.PartHeader
	b.PopulateHeader(&header)
	assert.EqualValues(t, 0, header.Length)
}

func TestFreezePrefixSlotsReemittedEverySave(t *testing.T) {
	b := New(MinChunkSlots)

	prefix := b.AddSlots(2)
	prefix[0], prefix[1] = 1, 2
	b.FreezePrefixSlots()

	slots := b.AddSlots(2)
	slots[0], slots[1] = 3, 4
	b.Flush()

	var header wire.PartHeader
	b.PopulateHeader(&header)
	assert.EqualValues(t, 16, header.Length) // 2 prefix + 2 written = 4 slots

	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	ok := b.WriteTo(&header, sink, true)
	require.True(t, ok)

	var words []uint32
	for i := 0; i < buf.Len(); i += 4 {
		words = append(words, uint32(buf.Bytes()[i])|uint32(buf.Bytes()[i+1])<<8|uint32(buf.Bytes()[i+2])<<16|uint32(buf.Bytes()[i+3])<<24)
	}
	assert.Equal(t, []uint32{1, 2, 3, 4}, words)

	// A second save with no new writes re-emits only the frozen prefix.
	var header2 wire.PartHeader
	b.PopulateHeader(&header2)
	assert.EqualValues(t, 8, header2.Length) // just the 2-slot prefix
}

func TestChunkOverflowBoundary(t *testing.T) {
	const chunkLimit = 512
	b := New(chunkLimit)

	prefix := b.AddSlots(4)
	for i := range prefix {
		prefix[i] = uint32(100 + i)
	}
	b.FreezePrefixSlots()

	// 510 slots, written in calls no larger than MaxAddSlotsCount.
	for written := 0; written < chunkLimit-2; {
		n := chunkLimit - 2 - written
		if n > MaxAddSlotsCount {
			n = MaxAddSlotsCount
		}
		first := b.AddSlots(n)
		for i := range first {
			first[i] = uint32(written + i)
		}
		written += n
	}
	b.Flush()

	second := b.AddSlots(4) // crosses the boundary, triggers overflow
	for i := range second {
		second[i] = uint32(1000 + i)
	}
	b.Flush()

	var header wire.PartHeader
	b.PopulateHeader(&header)
	expectedSlots := 4 + (chunkLimit - 2) + 4
	assert.EqualValues(t, expectedSlots*4, header.Length)

	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	ok := b.WriteTo(&header, sink, true)
	require.True(t, ok)

	// A subsequent 4-slot write-and-save re-emits only the prefix plus the
	// new write.
	more := b.AddSlots(4)
	for i := range more {
		more[i] = uint32(2000 + i)
	}
	b.Flush()

	var header2 wire.PartHeader
	b.PopulateHeader(&header2)
	assert.EqualValues(t, 8*4, header2.Length)
}

func TestWriteToDrainsHeadChunksWhenClearing(t *testing.T) {
	const chunkLimit = MinChunkSlots
	b := New(chunkLimit)

	first := b.AddSlots(chunkLimit)
	for i := range first {
		first[i] = uint32(i)
	}
	b.Flush()

	// Force overflow into a second chunk.
	second := b.AddSlots(4)
	for i := range second {
		second[i] = uint32(9000 + i)
	}
	b.Flush()

	headBefore := b.head

	var header wire.PartHeader
	b.PopulateHeader(&header)

	var buf bytes.Buffer
	sink := wire.NewSink(&buf)
	ok := b.WriteTo(&header, sink, true)
	require.True(t, ok)

	assert.NotSame(t, headBefore, b.head, "drained head chunk should have been advanced past")
}

func TestOutOfScope(t *testing.T) {
	b := New(MinChunkSlots)
	assert.False(t, b.OutOfScope())
	b.SetOutOfScope()
	assert.True(t, b.OutOfScope())
}

// TestConcurrentWriterAndReader hammers a single buffer with one writer
// goroutine continuously adding and flushing 4-slot records while a reader
// goroutine repeatedly snapshots and drains it, verifying every record read
// back is intact (never torn across the wire_id..arg boundary) and that no
// deadlock or data race occurs.
func TestConcurrentWriterAndReader(t *testing.T) {
	const chunkLimit = MinChunkSlots
	const recordsToWrite = 5000

	b := New(chunkLimit)

	var wg sync.WaitGroup
	wg.Add(2)

	writerDone := make(chan struct{})
	go func() {
		defer wg.Done()
		for i := 0; i < recordsToWrite; i++ {
			slots := b.AddSlots(4)
			v := uint32(i)
			slots[0], slots[1], slots[2], slots[3] = v, v, v, v
			b.Flush()
		}
		close(writerDone)
	}()

	var totalSlotsRead int
	go func() {
		defer wg.Done()
		for {
			var header wire.PartHeader
			b.PopulateHeader(&header)
			if header.Length > 0 {
				var buf bytes.Buffer
				sink := wire.NewSink(&buf)
				ok := b.WriteTo(&header, sink, true)
				require.True(t, ok)
				require.Zero(t, buf.Len()%16, "drained bytes must be a whole number of 4-slot records")
				totalSlotsRead += buf.Len() / 4
			}

			select {
			case <-writerDone:
				// Drain whatever trickled in after the writer finished.
				var finalHeader wire.PartHeader
				b.PopulateHeader(&finalHeader)
				if finalHeader.Length > 0 {
					var buf bytes.Buffer
					sink := wire.NewSink(&buf)
					ok := b.WriteTo(&finalHeader, sink, true)
					require.True(t, ok)
					totalSlotsRead += buf.Len() / 4
				}
				return
			default:
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock detected in concurrent writer/reader test")
	}

	assert.Equal(t, recordsToWrite*4, totalSlotsRead)
}
