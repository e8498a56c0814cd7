package wtf

import (
	"math"

	"github.com/google/tracing-framework/internal/eventbuf"
	"github.com/google/tracing-framework/internal/platform"
	"github.com/google/tracing-framework/internal/registry"
	"github.com/google/tracing-framework/internal/stringtable"
)

// Arg is one pre-encoded event argument, tagged with the wire type it was
// built from so emission can validate it against a descriptor's declared
// argument types.
type Arg struct {
	typ registry.ArgType
	u32 uint32
	str string
}

// Type reports the wire argument type this Arg was constructed as.
func (a Arg) Type() registry.ArgType { return a.typ }

func Int8Arg(v int8) Arg   { return Arg{typ: registry.ArgInt8, u32: uint32(int32(v))} }
func Uint8Arg(v uint8) Arg { return Arg{typ: registry.ArgUint8, u32: uint32(v)} }
func Int16Arg(v int16) Arg { return Arg{typ: registry.ArgInt16, u32: uint32(int32(v))} }
func Uint16Arg(v uint16) Arg { return Arg{typ: registry.ArgUint16, u32: uint32(v)} }
func Int32Arg(v int32) Arg { return Arg{typ: registry.ArgInt32, u32: uint32(v)} }
func Uint32Arg(v uint32) Arg { return Arg{typ: registry.ArgUint32, u32: v} }

// Int64Arg truncates to the low 32 bits, a documented lossy encoding: the
// wire format has no two-slot integer representation.
func Int64Arg(v int64) Arg { return Arg{typ: registry.ArgInt64, u32: uint32(v)} }

// Uint64Arg truncates to the low 32 bits, same caveat as Int64Arg.
func Uint64Arg(v uint64) Arg { return Arg{typ: registry.ArgUint64, u32: uint32(v)} }

func Float32Arg(v float32) Arg { return Arg{typ: registry.ArgFloat32, u32: math.Float32bits(v)} }

func BoolArg(v bool) Arg {
	var u uint32
	if v {
		u = 1
	}
	return Arg{typ: registry.ArgBool, u32: u}
}

func StringArg(s string) Arg    { return Arg{typ: registry.ArgString, str: s} }
func RawStringArg(s string) Arg { return Arg{typ: registry.ArgRawString, str: s} }

// encodeArg resolves an Arg to its final 32-bit slot value, interning
// through table when the argument is a string type.
func encodeArg(table *stringtable.Table, a Arg) uint32 {
	switch a.typ {
	case registry.ArgString, registry.ArgRawString:
		return uint32(table.GetStringId(a.str))
	default:
		return a.u32
	}
}

// validateArgs checks args against d's declared argument types. A mismatch
// is a programmer error: the descriptor's argument types are fixed at
// construction and cannot change.
func validateArgs(d *registry.Descriptor, args []Arg) {
	if len(args) != len(d.ArgTypes) {
		panic(NewError("validateArgs", CodeProgrammer, "argument count mismatch for "+d.Name))
	}
	for i, a := range args {
		if a.Type() != d.ArgTypes[i] {
			panic(NewError("validateArgs", CodeProgrammer, "argument type mismatch for "+d.Name))
		}
	}
}

// emitInstant writes one complete event record (wire id, timestamp,
// arguments) into buf.
func emitInstant(buf *eventbuf.Buffer, table *stringtable.Table, clock platform.Clock, d *registry.Descriptor, args ...Arg) {
	validateArgs(d, args)
	ts := uint32(clock.NowMicros())
	slots := buf.AddSlots(2 + len(args))
	slots[0] = uint32(d.WireID)
	slots[1] = ts
	for i, a := range args {
		slots[2+i] = encodeArg(table, a)
	}
}

// emitScopeLeave writes the fixed, descriptor-free scope-leave record.
func emitScopeLeave(buf *eventbuf.Buffer, clock platform.Clock) {
	ts := uint32(clock.NowMicros())
	slots := buf.AddSlots(2)
	slots[0] = uint32(registry.ScopeLeaveWireID)
	slots[1] = ts
}

// Producer is the per-thread (or per-task) handle producers use to emit
// events. It owns one event buffer, shares the runtime's string table, and
// reads the runtime's clock.
type Producer struct {
	runtime *Runtime
	buffer  *eventbuf.Buffer
}

// Buffer exposes the underlying event buffer, for callers (the save
// pipeline, tests) that need direct access.
func (p *Producer) Buffer() *eventbuf.Buffer { return p.buffer }

// EmitInstant emits an instant event with the given descriptor and
// arguments.
func (p *Producer) EmitInstant(d *registry.Descriptor, args ...Arg) {
	emitInstant(p.buffer, p.runtime.stringTable, p.runtime.clock, d, args...)
	p.runtime.recordEvent(false, false)
}

// EnterScope emits a scoped event's enter record and returns a function
// that emits the matching leave record. Callers typically defer the
// returned function immediately: `defer p.EnterScope(d, args...)()`.
func (p *Producer) EnterScope(d *registry.Descriptor, args ...Arg) func() {
	emitInstant(p.buffer, p.runtime.stringTable, p.runtime.clock, d, args...)
	p.runtime.recordEvent(true, false)
	return func() {
		emitScopeLeave(p.buffer, p.runtime.clock)
		p.runtime.recordEvent(false, true)
	}
}

// Flush publishes this producer's buffer, making its events visible to a
// concurrent save.
func (p *Producer) Flush() {
	p.buffer.Flush()
}
