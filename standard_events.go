package wtf

import (
	"github.com/google/tracing-framework/internal/eventbuf"
	"github.com/google/tracing-framework/internal/registry"
)

// standardEvents holds the descriptors for the tracer's own built-in
// events: the two fixed-wire-id bootstrap events and four auto-assigned
// ones. One set is built per Runtime and registered into that runtime's
// event registry so it self-describes in every trace it writes.
type standardEvents struct {
	eventDefine *EventDescriptor
	scopeLeave  *EventDescriptor
	zoneCreate  *EventDescriptor
	zoneSet     *EventDescriptor
	frameStart  *EventDescriptor
	frameEnd    *EventDescriptor
}

const (
	eventDefineWireID = 1
	// registry.ScopeLeaveWireID == 2
)

func newStandardEvents(r *registry.EventRegistry) *standardEvents {
	s := &standardEvents{
		eventDefine: registry.NewDescriptor(eventDefineWireID, ClassInstant, FlagBuiltin,
			"wtf.event#define:wireId,eventClass,flags,name,args",
			[]ArgType{ArgUint16, ArgUint16, ArgUint32, ArgString, ArgString}),
		scopeLeave: registry.NewDescriptor(registry.ScopeLeaveWireID, ClassInstant, FlagBuiltin,
			"wtf.scope#leave", nil),
	}
	s.zoneCreate = registry.NewDescriptor(registry.NextEventID(), ClassInstant, FlagBuiltin,
		"wtf.zone#create:zoneId,name,type,location",
		[]ArgType{ArgUint16, ArgString, ArgString, ArgString})
	s.zoneSet = registry.NewDescriptor(registry.NextEventID(), ClassInstant, FlagBuiltin,
		"wtf.zone#set:zoneId", []ArgType{ArgUint16})
	s.frameStart = registry.NewDescriptor(registry.NextEventID(), ClassInstant, FlagBuiltin,
		"wtf.timing#frameStart:number", []ArgType{ArgUint32})
	s.frameEnd = registry.NewDescriptor(registry.NextEventID(), ClassInstant, FlagBuiltin,
		"wtf.timing#frameEnd:number", []ArgType{ArgUint32})

	r.Register(s.eventDefine)
	r.Register(s.scopeLeave)
	r.Register(s.zoneCreate)
	r.Register(s.zoneSet)
	r.Register(s.frameStart)
	r.Register(s.frameEnd)

	return s
}

// DefineEvent emits a "wtf.event#define" record describing d into buf.
func (s *standardEvents) DefineEvent(buf *eventbuf.Buffer, rt *Runtime, d *EventDescriptor) {
	emitInstant(buf, rt.stringTable, rt.clock, s.eventDefine,
		Uint16Arg(d.WireID),
		Uint16Arg(uint16(d.Class)),
		Uint32Arg(uint32(d.Flags)),
		StringArg(d.Name),
		StringArg(d.Signature()),
	)
}

// ScopeLeave emits the fixed wire-id-2 leave record directly into buf,
// bypassing descriptor lookup since the wire id is constant by invariant.
func (s *standardEvents) ScopeLeave(buf *eventbuf.Buffer, rt *Runtime) {
	emitScopeLeave(buf, rt.clock)
}

// CreateZone emits a "wtf.zone#create" record for the given zone into buf.
func (s *standardEvents) CreateZone(buf *eventbuf.Buffer, rt *Runtime, zoneID int32, name, typ, location string) {
	emitInstant(buf, rt.stringTable, rt.clock, s.zoneCreate,
		Uint16Arg(uint16(zoneID)),
		StringArg(name),
		StringArg(typ),
		StringArg(location),
	)
}

// SetZone emits a "wtf.zone#set" record stamping buf's producer identity.
func (s *standardEvents) SetZone(buf *eventbuf.Buffer, rt *Runtime, zoneID int32) {
	emitInstant(buf, rt.stringTable, rt.clock, s.zoneSet, Uint16Arg(uint16(zoneID)))
}

// FrameStart emits a "wtf.timing#frameStart" record.
func (s *standardEvents) FrameStart(buf *eventbuf.Buffer, rt *Runtime, number uint32) {
	emitInstant(buf, rt.stringTable, rt.clock, s.frameStart, Uint32Arg(number))
}

// FrameEnd emits a "wtf.timing#frameEnd" record.
func (s *standardEvents) FrameEnd(buf *eventbuf.Buffer, rt *Runtime, number uint32) {
	emitInstant(buf, rt.stringTable, rt.clock, s.frameEnd, Uint32Arg(number))
}
