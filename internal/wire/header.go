package wire

// File-level constants (spec.md §6.1).
const (
	FileMagic     uint32 = 0xdeadbeef
	FormatTag     uint32 = 0xe8214400
	FormatVersion uint32 = 0x0000000a
)

// Chunk types.
const (
	ChunkTypeFileHeader uint32 = 0x1
	ChunkTypeEvents     uint32 = 0x2
)

// Part types.
const (
	PartTypeJSONHeader  uint32 = 0x10000
	PartTypeEventSlots  uint32 = 0x20002
	PartTypeStringTable uint32 = 0x30000
)

// FileHeaderChunkID and its sentinel start/end times, per spec.md §6.1.
const (
	FileHeaderChunkID = 1
	FileHeaderTime    = 0xffffffff
)

// FileHeaderJSON is the literal JSON header blob payload written as the
// file header chunk's single part. contextInfo.title is fixed:
// WriteFileHeaderChunk takes no title or blob parameter.
const FileHeaderJSON = `{"type":"file_header","timebase":0,"flags":["has_high_resolution_times"],"contextInfo":{"contextType":"script","title":"Go Trace"}}`

// WriteFilePrefix writes the three-word magic/format-tag/format-version
// prefix that precedes the first chunk of a fresh trace file.
func WriteFilePrefix(s *Sink) {
	s.AppendU32(FileMagic)
	s.AppendU32(FormatTag)
	s.AppendU32(FormatVersion)
}

// WriteFileHeaderChunk writes the fixed file-header chunk (id 1, start/end
// time 0xffffffff) carrying FileHeaderJSON as its one JSON-header part.
func WriteFileHeaderChunk(s *Sink) {
	json := []byte(FileHeaderJSON)
	parts := []PartHeader{{Type: PartTypeJSONHeader, Length: uint32(len(json))}}
	s.StartChunk(ChunkHeader{
		ID:        FileHeaderChunkID,
		Type:      ChunkTypeFileHeader,
		StartTime: FileHeaderTime,
		EndTime:   FileHeaderTime,
	}, parts)
	s.Append(json)
	s.Align()
}
