package format

import "encoding/binary"

// Binary encoding utilities for little-endian integers.
//
// Node records are written into the heap buffer itself, so the encoding must
// be explicit rather than relying on in-memory struct layout. Go's compiler
// inlines binary.LittleEndian calls well enough that nothing faster is
// warranted here.

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
