package wtf

import "github.com/google/tracing-framework/internal/registry"

// These aliases re-export the event descriptor vocabulary from
// internal/registry so callers outside this module can name the types
// without importing an internal package directly.

type (
	EventClass     = registry.EventClass
	EventFlags     = registry.Flags
	ArgType        = registry.ArgType
	EventDescriptor = registry.Descriptor
)

const (
	ClassInstant = registry.ClassInstant
	ClassScoped  = registry.ClassScoped
)

const (
	FlagInternal        = registry.FlagInternal
	FlagAppendScopeData = registry.FlagAppendScopeData
	FlagBuiltin         = registry.FlagBuiltin
	FlagHighFrequency   = registry.FlagHighFrequency
	FlagSystemTime      = registry.FlagSystemTime
	FlagAppendFlowData  = registry.FlagAppendFlowData
)

const (
	ArgInt8      = registry.ArgInt8
	ArgUint8     = registry.ArgUint8
	ArgInt16     = registry.ArgInt16
	ArgUint16    = registry.ArgUint16
	ArgInt32     = registry.ArgInt32
	ArgUint32    = registry.ArgUint32
	ArgInt64     = registry.ArgInt64
	ArgUint64    = registry.ArgUint64
	ArgFloat32   = registry.ArgFloat32
	ArgBool      = registry.ArgBool
	ArgString    = registry.ArgString
	ArgRawString = registry.ArgRawString
)
