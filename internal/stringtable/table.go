// Package stringtable implements the shared, mutex-guarded string
// interning table that backs zone names, event names, and argument names in
// the WTF wire format.
package stringtable

import (
	"sync"

	"github.com/google/tracing-framework/internal/wire"
)

// EmptyStringID is returned by GetStringId for the empty string, which is
// never interned.
const EmptyStringID = -1

// Table is a thread-safe string interning table. There is one Table shared
// by every EventBuffer in a Runtime.
type Table struct {
	mu         sync.Mutex
	strings    []string
	stringsIdx map[string]int
}

// New creates an empty Table.
func New() *Table {
	return &Table{stringsIdx: make(map[string]int)}
}

// GetStringId interns str if necessary and returns its dense id. The empty
// string always maps to EmptyStringID and is never stored.
func (t *Table) GetStringId(str string) int32 {
	if str == "" {
		return EmptyStringID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.stringsIdx[str]; ok {
		return int32(id)
	}

	id := len(t.strings)
	t.strings = append(t.strings, str)
	t.stringsIdx[str] = id
	return int32(id)
}

// Len reports how many distinct non-empty strings are currently interned.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.strings)
}

// PopulateHeader fills in header.Length with the byte length the table
// would occupy if serialized right now (NUL-terminated strings
// concatenated). Call this after every contributor to the table has had a
// chance to intern its strings, so the header reflects the final size. The
// table may still grow afterwards; WriteTo only emits what upToCount names.
func (t *Table) PopulateHeader(header *wire.PartHeader, upToCount int) {
	header.Type = wire.PartTypeStringTable
	header.Length = t.serializedLength(upToCount)
}

func (t *Table) serializedLength(upToCount int) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if upToCount > len(t.strings) {
		upToCount = len(t.strings)
	}
	var n uint32
	for i := 0; i < upToCount; i++ {
		n += uint32(len(t.strings[i])) + 1 // +1 for the NUL terminator
	}
	return n
}

// WriteTo writes the first upToCount interned strings to s as
// NUL-terminated concatenated bytes, then aligns the sink. upToCount is the
// count a prior PopulateHeader call was computed against; it caps how much
// of a table that grew since then actually gets emitted, so the chunk's
// length field and its payload agree.
func (t *Table) WriteTo(s *wire.Sink, upToCount int) {
	t.mu.Lock()
	strs := make([]string, 0, upToCount)
	if upToCount > len(t.strings) {
		upToCount = len(t.strings)
	}
	strs = append(strs, t.strings[:upToCount]...)
	t.mu.Unlock()

	for _, str := range strs {
		s.Append([]byte(str))
		s.Append([]byte{0})
	}
	s.Align()
}

// Clear empties the table. Intended for tests and Runtime.ResetForTesting.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strings = nil
	t.stringsIdx = make(map[string]int)
}
