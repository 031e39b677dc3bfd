package dumper

import (
	"encoding/binary"
	"fmt"
	"io"
)

// fakeSession serves reads and writes from one flat buffer mapped at base
// and locates modules from a fixed mapping table.
type fakeSession struct {
	base     uintptr
	mem      []byte
	regions  []Region
	attached bool

	reads []readCall
}

type readCall struct {
	ea   uintptr
	size int
}

func newFakeSession(base uintptr, mem []byte, regions ...Region) *fakeSession {
	return &fakeSession{base: base, mem: mem, regions: regions, attached: true}
}

func (s *fakeSession) Pid() uint32 { return 42 }

func (s *fakeSession) Attach() error {
	if s.attached {
		return ErrAlreadyAttached
	}
	s.attached = true
	return nil
}

func (s *fakeSession) Detach() error {
	if !s.attached {
		return ErrNotAttached
	}
	s.attached = false
	return nil
}

func (s *fakeSession) Attached() bool { return s.attached }

func (s *fakeSession) slice(ea uintptr, size int) ([]byte, error) {
	if ea < s.base || ea-s.base+uintptr(size) > uintptr(len(s.mem)) {
		return nil, platformError(fmt.Sprintf("access %d bytes at %X", size, ea), io.ErrUnexpectedEOF)
	}
	off := ea - s.base
	return s.mem[off : off+uintptr(size)], nil
}

func (s *fakeSession) ReadMemory(ea uintptr, buf []byte) error {
	if !s.attached {
		return ErrNotAttached
	}
	s.reads = append(s.reads, readCall{ea, len(buf)})
	src, err := s.slice(ea, len(buf))
	if err != nil {
		return err
	}
	copy(buf, src)
	return nil
}

func (s *fakeSession) WriteMemory(ea uintptr, data []byte) error {
	if !s.attached {
		return ErrNotAttached
	}
	dst, err := s.slice(ea, len(data))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (s *fakeSession) FindModule(name string) (Module, error) {
	return ModuleFromRegions(s.regions, name)
}

// elfImage returns an ELF64 little-endian header without a section table,
// padded to size.
func elfImage(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	return data
}

// peImage returns a PE32+ image with one section and the given build
// timestamp, padded to size.
func peImage(size int, timestamp uint32) []byte {
	const (
		nt       = 0x40
		coff     = nt + 4
		optional = coff + 20
		section  = optional + 0xF0
	)
	le := binary.LittleEndian

	data := make([]byte, size)
	copy(data, "MZ")
	le.PutUint32(data[0x3C:], nt)
	copy(data[nt:], "PE\x00\x00")
	le.PutUint16(data[coff:], 0x8664)
	le.PutUint16(data[coff+2:], 1)
	le.PutUint32(data[coff+4:], timestamp)
	le.PutUint16(data[coff+16:], 0xF0)
	le.PutUint16(data[optional:], 0x20B)
	le.PutUint64(data[optional+24:], 0x140000000)
	copy(data[section:], ".text")
	le.PutUint32(data[section+8:], 0x100)
	le.PutUint32(data[section+12:], 0x1000)
	le.PutUint32(data[section+16:], 0x200)
	le.PutUint32(data[section+20:], 0x400)
	return data
}
