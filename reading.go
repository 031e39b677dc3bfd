package dumper

import (
	"encoding/binary"
)

// ReadMemory reads size bytes at ea into a freshly allocated buffer.
func ReadMemory(s Session, ea uintptr, size int) ([]byte, error) {
	buffer := make([]byte, size)
	if err := s.ReadMemory(ea, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func ReadUInt32(s Session, ea uintptr) (uint32, error) {
	var buffer [4]byte
	if err := s.ReadMemory(ea, buffer[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buffer[:]), nil
}

func ReadUInt64(s Session, ea uintptr) (uint64, error) {
	var buffer [8]byte
	if err := s.ReadMemory(ea, buffer[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buffer[:]), nil
}
