package sort

import "encoding/binary"

// Entry is the host mirror of one sort entry as laid out in the entry
// buffers: a depth-derived key and the splat's index into the attribute
// buffer. Size: 8 bytes (2 × u32).
type Entry struct {
	Key   uint32 // offset 0: monotonic unsigned encoding of view-space depth
	Index uint32 // offset 4: index into the cloud's splat attribute buffer
}

// MarshalEntries serializes a slice of entries into one contiguous buffer in
// entry-buffer layout. Used to seed an identity ordering at upload time so a
// cloud is drawable before its first sort completes.
//
// Parameters:
//   - entries: the entries to serialize
//
// Returns:
//   - []byte: len(entries) * 8 bytes
func MarshalEntries(entries []Entry) []byte {
	buf := make([]byte, len(entries)*EntrySize)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(buf[i*EntrySize:], e.Key)
		binary.LittleEndian.PutUint32(buf[i*EntrySize+4:], e.Index)
	}
	return buf
}
