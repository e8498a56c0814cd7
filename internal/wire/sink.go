// Package wire implements the low-level byte-oriented primitives of the WTF
// chunked file format: little-endian word writes, 4-byte alignment padding,
// and chunk/part header layout.
package wire

import (
	"encoding/binary"
	"io"
)

// Alignment is the padding boundary every part payload is rounded up to.
const Alignment = 4

// PartHeader describes one part within a chunk: its wire type, its byte
// offset from the end of the chunk's part-descriptor array, and its
// unpadded payload length.
type PartHeader struct {
	Type   uint32
	Offset uint32
	Length uint32
}

// ChunkHeader carries the fields the caller supplies when starting a chunk.
// The chunk length, part count and part offsets are computed by the sink
// itself.
type ChunkHeader struct {
	ID        uint32
	Type      uint32
	StartTime uint32
	EndTime   uint32
}

// align4 rounds n up to the next multiple of Alignment.
func align4(n uint32) uint32 {
	rem := n % Alignment
	if rem == 0 {
		return n
	}
	return n + (Alignment - rem)
}

// Sink wraps an io.Writer with the WTF wire primitives. It is not safe for
// concurrent use; callers serialize writes themselves (the runtime's save
// pipeline holds exactly one sink per save).
type Sink struct {
	out     io.Writer
	written uint64
	failed  bool
}

// NewSink wraps out for WTF wire writes.
func NewSink(out io.Writer) *Sink {
	return &Sink{out: out}
}

// Written returns the number of bytes written so far.
func (s *Sink) Written() uint64 { return s.written }

// Failed reports whether a prior write to the underlying stream failed.
// Once failed, a Sink keeps refusing writes for its whole session: this
// mirrors an ostream's sticky failbit in the original implementation.
func (s *Sink) Failed() bool { return s.failed }

// Append writes raw bytes and advances the written counter.
func (s *Sink) Append(p []byte) {
	if s.failed {
		return
	}
	n, err := s.out.Write(p)
	s.written += uint64(n)
	if err != nil {
		s.failed = true
	}
}

// AppendU32 writes v as 4 little-endian bytes.
func (s *Sink) AppendU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	s.Append(buf[:])
}

var zeroPad [Alignment]byte

// Align pads the stream with zero bytes until Written() is a multiple of 4.
func (s *Sink) Align() {
	rem := uint32(s.written % Alignment)
	if rem == 0 {
		return
	}
	s.Append(zeroPad[:Alignment-rem])
}

// StartChunk writes a chunk header followed by the part-descriptor array,
// filling in each part's Offset in place. Offsets are computed assuming
// parts are written back to back by the caller with Align() called between
// each payload, matching the layout this method commits to on the wire.
//
// The caller is responsible for writing each part's payload, in order,
// calling Align() after each one, immediately after this call returns.
func (s *Sink) StartChunk(header ChunkHeader, parts []PartHeader) {
	const headerWords = 6
	const partWords = 3

	var offset uint32
	for i := range parts {
		parts[i].Offset = offset
		offset += align4(parts[i].Length)
	}
	chunkLength := uint32(headerWords*4+len(parts)*partWords*4) + offset

	s.AppendU32(header.ID)
	s.AppendU32(header.Type)
	s.AppendU32(chunkLength)
	s.AppendU32(header.StartTime)
	s.AppendU32(header.EndTime)
	s.AppendU32(uint32(len(parts)))

	for _, p := range parts {
		s.AppendU32(p.Type)
		s.AppendU32(p.Offset)
		s.AppendU32(p.Length)
	}
}
