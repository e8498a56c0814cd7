// Package registry implements event descriptors and the process-wide
// registries that assign stable wire ids to them and to zones.
package registry

import (
	"fmt"
	"strings"
)

// EventClass distinguishes instant events from scoped ones.
type EventClass uint16

const (
	ClassInstant EventClass = iota
	ClassScoped
)

// Flags is a bitset of event descriptor flags.
type Flags uint32

const (
	FlagInternal Flags = 1 << iota
	FlagAppendScopeData
	FlagBuiltin
	FlagHighFrequency
	FlagSystemTime
	FlagAppendFlowData
)

// ScopeLeaveWireID is permanently reserved for the implicit leave record
// emitted at the end of every scoped event.
const ScopeLeaveWireID uint16 = 2

// ArgType tags the wire encoding of one argument slot.
type ArgType int

const (
	ArgInt8 ArgType = iota
	ArgUint8
	ArgInt16
	ArgUint16
	ArgInt32
	ArgUint32
	ArgInt64
	ArgUint64
	ArgFloat32
	ArgBool
	ArgString
	ArgRawString
)

// typeName returns the WTF argument-signature type name for t.
func (t ArgType) typeName() string {
	switch t {
	case ArgInt8:
		return "int8"
	case ArgUint8:
		return "uint8"
	case ArgInt16:
		return "int16"
	case ArgUint16:
		return "uint16"
	case ArgInt32:
		return "int32"
	case ArgUint32:
		return "uint32"
	case ArgInt64:
		return "int64"
	case ArgUint64:
		return "uint64"
	case ArgFloat32:
		return "float32"
	case ArgBool:
		return "bool"
	case ArgString:
		return "ascii"
	case ArgRawString:
		return "ascii"
	default:
		return "unknown"
	}
}

// SlotsPerArg is always 1: every argument type the wire format supports,
// including 64-bit integers (lossily truncated) and strings (interned to
// one id), consumes exactly one slot.
const SlotsPerArg = 1

// Descriptor is an immutable event descriptor: wire id, class, flags, a
// parsed name and argument-name list, and the argument type list used to
// compute slot counts and signatures. Descriptors are constructed once,
// typically at first use of a named event site, and registered for the
// process lifetime.
type Descriptor struct {
	WireID   uint16
	Class    EventClass
	Flags    Flags
	Name     string
	ArgTypes []ArgType
	ArgNames []string
}

// ArgSlotCount returns the number of slots this descriptor's arguments
// occupy, not counting the fixed wire_id/timestamp header slots.
func (d *Descriptor) ArgSlotCount() int {
	return len(d.ArgTypes) * SlotsPerArg
}

// Signature produces the WTF-style argument signature, e.g.
// "int32 i, ascii s".
func (d *Descriptor) Signature() string {
	parts := make([]string, len(d.ArgTypes))
	for i, t := range d.ArgTypes {
		parts[i] = fmt.Sprintf("%s %s", t.typeName(), d.ArgNames[i])
	}
	return strings.Join(parts, ", ")
}

// NewDescriptor parses nameSpec and builds a Descriptor with the given wire
// id, class, flags, and argument types.
//
// nameSpec has the form "prefix[:arg_names]". Occurrences of "::" in the
// prefix are rewritten to "#" to respect WTF's separator. A single ":"
// separates the prefix from a comma-and-whitespace-separated list of
// argument names; when fewer names are supplied than there are argument
// types, the missing ones are auto-generated as "a{index}".
func NewDescriptor(wireID uint16, class EventClass, flags Flags, nameSpec string, argTypes []ArgType) *Descriptor {
	name, argNames := parseNameSpec(nameSpec, len(argTypes))
	return &Descriptor{
		WireID:   wireID,
		Class:    class,
		Flags:    flags,
		Name:     name,
		ArgTypes: argTypes,
		ArgNames: argNames,
	}
}

func parseNameSpec(nameSpec string, argCount int) (name string, argNames []string) {
	prefix := nameSpec
	var rawArgNames string
	hasArgNames := false

	sepIdx := -1
	for i := 0; i < len(nameSpec); i++ {
		if nameSpec[i] != ':' {
			continue
		}
		if i+1 < len(nameSpec) && nameSpec[i+1] == ':' {
			i++ // skip the "::" namespace separator, not an arg-list split
			continue
		}
		sepIdx = i
		break
	}
	if sepIdx >= 0 {
		prefix = nameSpec[:sepIdx]
		rawArgNames = nameSpec[sepIdx+1:]
		hasArgNames = true
	}

	prefix = strings.TrimSpace(prefix)
	name = strings.ReplaceAll(prefix, "::", "#")

	argNames = make([]string, argCount)
	var provided []string
	if hasArgNames {
		for _, part := range strings.Split(rawArgNames, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			provided = append(provided, part)
		}
	}

	for i := 0; i < argCount; i++ {
		if i < len(provided) {
			argNames[i] = provided[i]
		} else {
			argNames[i] = fmt.Sprintf("a%d", i)
		}
	}
	return name, argNames
}
