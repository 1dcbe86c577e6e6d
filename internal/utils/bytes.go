package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a read would run past the end of the buffer.
var ErrOutOfBounds = errors.New("read out of bounds")

// Reports whether n bytes starting at offset lie inside data.
func Available(data []byte, offset, n int) bool {
	return offset >= 0 && n >= 0 && offset <= len(data) && len(data)-offset >= n
}

// Reads a little-endian uint16 at offset
func ReadUint16(data []byte, offset int) (uint16, error) {
	if !Available(data, offset, 2) {
		return 0, fmt.Errorf("%w: 2 bytes at offset %d (len %d)", ErrOutOfBounds, offset, len(data))
	}
	return binary.LittleEndian.Uint16(data[offset:]), nil
}

// Reads a little-endian uint32 at offset
func ReadUint32(data []byte, offset int) (uint32, error) {
	if !Available(data, offset, 4) {
		return 0, fmt.Errorf("%w: 4 bytes at offset %d (len %d)", ErrOutOfBounds, offset, len(data))
	}
	return binary.LittleEndian.Uint32(data[offset:]), nil
}

// Reads a little-endian int32 at offset
func ReadInt32(data []byte, offset int) (int32, error) {
	v, err := ReadUint32(data, offset)
	return int32(v), err
}
