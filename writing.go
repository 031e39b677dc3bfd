package dumper

import (
	"encoding/binary"
)

func WriteUInt32(s Session, ea uintptr, value uint32) error {
	var buffer [4]byte
	binary.LittleEndian.PutUint32(buffer[:], value)
	return s.WriteMemory(ea, buffer[:])
}

func WriteUInt64(s Session, ea uintptr, value uint64) error {
	var buffer [8]byte
	binary.LittleEndian.PutUint64(buffer[:], value)
	return s.WriteMemory(ea, buffer[:])
}
