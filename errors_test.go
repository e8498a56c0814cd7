package wtf

import (
	"errors"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("Save", CodeIO, "write failed")

	if err.Op != "Save" {
		t.Errorf("Expected Op=Save, got %s", err.Op)
	}
	if err.Code != CodeIO {
		t.Errorf("Expected Code=CodeIO, got %s", err.Code)
	}

	expected := "wtf: write failed (op=Save)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestZoneError(t *testing.T) {
	err := NewZoneError("AddSlots", 7, CodeConsistency, "chunk overflow")

	if err.ZoneID != 7 {
		t.Errorf("Expected ZoneID=7, got %d", err.ZoneID)
	}

	expected := "wtf: chunk overflow (op=AddSlots)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapError("SaveToFile", inner)

	if err.Code != CodeIO {
		t.Errorf("Expected Code=CodeIO, got %s", err.Code)
	}
	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to satisfy errors.Is for the inner error")
	}

	if WrapError("op", nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestWrapErrorPreservesStructuredCode(t *testing.T) {
	inner := NewZoneError("GetStringId", 3, CodeConsistency, "table corrupt")
	wrapped := WrapError("Flush", inner)

	if wrapped.Code != CodeConsistency {
		t.Errorf("Expected Code=CodeConsistency, got %s", wrapped.Code)
	}
	if wrapped.ZoneID != 3 {
		t.Errorf("Expected ZoneID=3, got %d", wrapped.ZoneID)
	}
}

func TestErrorIs(t *testing.T) {
	a := &Error{Code: CodeNotFound}
	b := NewError("Lookup", CodeNotFound, "no such zone")

	if !errors.Is(b, a) {
		t.Error("errors.Is should match on error code")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("Test", CodeProgrammer, "misuse")

	if !IsCode(err, CodeProgrammer) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, CodeIO) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, CodeProgrammer) {
		t.Error("IsCode should return false for nil error")
	}
}
