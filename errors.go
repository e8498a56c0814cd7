package wtf

import (
	"errors"
	"fmt"
)

// Error represents a structured tracer error with context.
type Error struct {
	Op     string    // Operation that failed (e.g., "Save", "AddSlots", "GetStringId")
	ZoneID int32     // Zone id involved, 0 if not applicable
	Code   ErrorCode // High-level error category
	Msg    string    // Human-readable message
	Inner  error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.ZoneID != 0 {
		parts = append(parts, fmt.Sprintf("zone=%d", e.ZoneID))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("wtf: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("wtf: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support keyed on error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents high-level error categories.
type ErrorCode string

const (
	// CodeIO covers I/O and file failures: writing to the underlying
	// io.Writer during Save, opening or replacing a trace file, and reading
	// or parsing a config file. WrapError also assigns it to any plain error.
	CodeIO ErrorCode = "i/o error"
	// CodeConsistency covers violated buffer invariants detected at runtime:
	// during Save, an event buffer holding fewer slots than its part header
	// promised.
	CodeConsistency ErrorCode = "consistency error"
	// CodeProgrammer covers misuse of the public API: emitting an event
	// whose arguments do not match its descriptor's argument count or types.
	CodeProgrammer ErrorCode = "programmer error"
	// CodeNotFound covers lookups against registries that found nothing.
	CodeNotFound ErrorCode = "not found"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewZoneError creates a new zone-scoped structured error.
func NewZoneError(op string, zoneID int32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, ZoneID: zoneID, Code: code, Msg: msg}
}

// WrapError wraps an existing error with tracer context, preserving the
// inner error's code and zone if it is already a structured *Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if we, ok := inner.(*Error); ok {
		return &Error{
			Op:     op,
			ZoneID: we.ZoneID,
			Code:   we.Code,
			Msg:    we.Msg,
			Inner:  we.Inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  CodeIO,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Code == code
	}
	return false
}
