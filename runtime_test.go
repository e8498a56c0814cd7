package wtf

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/tracing-framework/internal/registry"
	"github.com/google/tracing-framework/internal/wire"
)

func newTestRuntime(clock *FakeClock) *Runtime {
	rt := NewRuntime(Config{ChunkLimitSlots: 512})
	rt.clock = clock
	return rt
}

// words unpacks a little-endian u32 stream for easy assertions.
func words(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4 : i*4+4])
	}
	return out
}

func TestSaveFirstCallWritesFileHeaderAndDefinitions(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))

	var buf bytes.Buffer
	require.NoError(t, rt.Save(&buf, SaveOptions{}))

	w := words(buf.Bytes())
	require.GreaterOrEqual(t, len(w), 3)
	assert.Equal(t, uint32(0xdeadbeef), w[0])
	assert.Equal(t, uint32(0xe8214400), w[1])
	assert.Equal(t, uint32(0xa), w[2])

	// File header chunk starts right after the prefix.
	assert.Equal(t, uint32(1), w[3]) // id
	assert.Equal(t, uint32(0x1), w[4]) // type

	assert.False(t, rt.checkpoint.NeedsFileHeader)
	assert.Equal(t, rt.eventRegistry.Len(), rt.checkpoint.EventDefinitionFromIndex)
	assert.Equal(t, rt.zoneRegistry.Len(), rt.checkpoint.ZoneDefinitionFromIndex)
}

func TestSaveSecondCallOmitsFileHeaderAndIsIncremental(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))

	var first bytes.Buffer
	require.NoError(t, rt.Save(&first, SaveOptions{}))
	eventCountAfterFirst := rt.eventRegistry.Len()
	zoneCountAfterFirst := rt.zoneRegistry.Len()

	// Register one new event descriptor and zone, as a caller defining a
	// new named event site and a new producer would.
	rt.eventRegistry.Register(registry.NewDescriptor(
		registry.NextEventID(), ClassInstant, 0, "app#customEvent:value", []ArgType{ArgUint32}))
	rt.zoneRegistry.CreateZone("worker:0", "THREAD", "")

	var second bytes.Buffer
	require.NoError(t, rt.Save(&second, SaveOptions{}))

	secondBytes := second.Bytes()
	w := words(secondBytes)

	// No file prefix and no file-header chunk the second time: the stream
	// starts directly with an events chunk (type 0x2).
	assert.NotEqual(t, uint32(0xdeadbeef), w[0])
	assert.Equal(t, uint32(0x2), w[1])

	assert.Equal(t, eventCountAfterFirst+1, rt.checkpoint.EventDefinitionFromIndex)
	assert.Equal(t, zoneCountAfterFirst+1, rt.checkpoint.ZoneDefinitionFromIndex)
}

func TestSaveThreadBufferEventsAppearAfterDefinitions(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	ctx, p := rt.EnableCurrentThread(context.Background(), "main", "THREAD", "main.go:1")

	leave := p.EnterScope(rt.standard.frameStart, Uint32Arg(1))
	leave()
	p.Flush()

	var buf bytes.Buffer
	require.NoError(t, rt.Save(&buf, SaveOptions{ClearThreadData: true}))
	assert.Greater(t, buf.Len(), 0)

	// Walk the chunks after the 3-word file prefix: file header (id 1),
	// definitions (id 2), then the thread buffer's chunk (id 3).
	b := buf.Bytes()
	var ids []uint32
	for off := 12; off+12 <= len(b); {
		ids = append(ids, binary.LittleEndian.Uint32(b[off:]))
		off += int(binary.LittleEndian.Uint32(b[off+8:]))
	}
	assert.Equal(t, []uint32{1, 2, 3}, ids)

	_, ok := ProducerFromContext(ctx)
	assert.True(t, ok)
}

func TestSaveReturnsErrorOnWriteFailure(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	fw := NewFailingWriter(4) // fails before the 12-word file-header stream fits

	err := rt.Save(fw, SaveOptions{})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeIO))
}

func TestSaveToFileTruncateThenAppend(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	dir := t.TempDir()
	path := dir + "/trace.wtf-trace"

	require.NoError(t, rt.SaveToFile(path, SaveOptions{}))

	rt.eventRegistry.Register(registry.NewDescriptor(
		registry.NextEventID(), ClassInstant, 0, "app#second", nil))

	require.NoError(t, rt.SaveToFile(path, SaveOptions{Append: true}))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Greater(t, len(contents), 0)
}

func TestResetForTestingPreservesRegistriesButClearsBuffers(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	_, p := rt.EnableCurrentThread(context.Background(), "main", "THREAD", "")
	p.EmitInstant(rt.standard.frameStart, Uint32Arg(1))

	eventsBefore := rt.eventRegistry.Len()
	zonesBefore := rt.zoneRegistry.Len()

	rt.ResetForTesting()

	assert.Equal(t, eventsBefore, rt.eventRegistry.Len())
	assert.Equal(t, zonesBefore, rt.zoneRegistry.Len())
	assert.Empty(t, rt.buffers)
	assert.True(t, rt.checkpoint.NeedsFileHeader)
}

func TestClearThreadDataDrainsBuffersButKeepsThemRegistered(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	_, p := rt.EnableCurrentThread(context.Background(), "main", "THREAD", "")
	p.EmitInstant(rt.standard.frameStart, Uint32Arg(1))
	p.Flush()

	require.Len(t, rt.buffers, 1)
	buf := rt.buffers[0]

	var before wire.PartHeader
	buf.PopulateHeader(&before)
	require.Greater(t, before.Length, uint32(0))

	rt.ClearThreadData()

	require.Len(t, rt.buffers, 1)
	assert.Same(t, buf, rt.buffers[0])

	// Only the frozen 3-slot SetZone prefix remains.
	var after wire.PartHeader
	buf.PopulateHeader(&after)
	assert.Equal(t, uint32(3*4), after.Length)

	// The producer is still live: new events written after the clear show
	// up in the next save.
	p.EmitInstant(rt.standard.frameStart, Uint32Arg(2))
	p.Flush()

	var saved bytes.Buffer
	require.NoError(t, rt.Save(&saved, SaveOptions{}))
	assert.Greater(t, saved.Len(), 0)
}

func TestPopPushTaskEventBufferReusesZone(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))

	p1 := rt.PopTaskEventBuffer("decode")
	buf1 := p1.Buffer()
	rt.PushTaskEventBuffer("decode", p1)

	p2 := rt.PopTaskEventBuffer("decode")
	assert.Same(t, buf1, p2.Buffer())
}

func TestFrameStartEndIncrementsFrameNumber(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	ctx, _ := rt.EnableCurrentThread(context.Background(), "main", "THREAD", "")

	assert.Equal(t, uint32(0), rt.frameNumber)
	rt.FrameStart(ctx)
	assert.Equal(t, uint32(0), rt.frameNumber)
	rt.FrameEnd(ctx)
	assert.Equal(t, uint32(1), rt.frameNumber)

	rt.FrameStart(ctx)
	rt.FrameEnd(ctx)
	assert.Equal(t, uint32(2), rt.frameNumber)
}

func TestFrameStartEndWithoutProducerIsNoOp(t *testing.T) {
	rt := newTestRuntime(NewFakeClock(100))
	rt.FrameStart(context.Background())
	rt.FrameEnd(context.Background())
	assert.Equal(t, uint32(0), rt.frameNumber)
}

func TestGetRuntimeSingleton(t *testing.T) {
	a := GetRuntime()
	b := GetRuntime()
	assert.Same(t, a, b)
}
