package image

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	elfHeaderSize       = 64
	elfSectionEntrySize = 64

	elfClass64  = 2
	elfDataLSB  = 1
	elfDataMSB  = 2
	identClass  = 4
	identData   = 5
	ehdrShoff   = 0x28
	ehdrShnum   = 0x3C
	shdrAddr    = 0x10
	shdrOffset  = 0x18
	shdrSize    = 0x20
)

// ELF is a view of an ELF64 image's file header and section header table.
type ELF struct {
	order    binary.ByteOrder
	header   []byte
	sections []ELFSection
}

// ELFSection is one 64-byte section header.
type ELFSection struct {
	order binary.ByteOrder
	b     []byte
}

func (s ELFSection) Addr() uint64   { return s.order.Uint64(s.b[shdrAddr:]) }
func (s ELFSection) Offset() uint64 { return s.order.Uint64(s.b[shdrOffset:]) }
func (s ELFSection) Size() uint64   { return s.order.Uint64(s.b[shdrSize:]) }

func (s ELFSection) SetAddr(v uint64) { s.order.PutUint64(s.b[shdrAddr:], v) }

// ParseELF builds a view over data. A zero e_shoff means the image carries no
// section table, which is not an error.
func ParseELF(data []byte) (*ELF, error) {
	header, err := span(data, 0, elfHeaderSize, "ELF header")
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(header, elfMagic) {
		return nil, errors.Wrap(ErrInvalidImage, "no ELF signature")
	}
	if header[identClass] != elfClass64 {
		return nil, errors.Wrapf(ErrInvalidImage, "not an ELF64 image (class %d)", header[identClass])
	}

	var order binary.ByteOrder
	switch header[identData] {
	case elfDataLSB:
		order = binary.LittleEndian
	case elfDataMSB:
		order = binary.BigEndian
	default:
		return nil, errors.Wrapf(ErrInvalidImage, "unknown ELF data encoding %d", header[identData])
	}

	e := &ELF{order: order, header: header}

	shoff := e.SectionHeaderOffset()
	if shoff == 0 {
		return e, nil
	}

	n := uint64(order.Uint16(header[ehdrShnum:]))
	table, err := span(data, shoff, n*elfSectionEntrySize, "section header table")
	if err != nil {
		return nil, err
	}

	e.sections = make([]ELFSection, n)
	for i := range e.sections {
		e.sections[i] = ELFSection{order: order, b: table[i*elfSectionEntrySize : (i+1)*elfSectionEntrySize]}
	}
	return e, nil
}

func (e *ELF) ByteOrder() binary.ByteOrder {
	return e.order
}

func (e *ELF) SectionHeaderOffset() uint64 {
	return e.order.Uint64(e.header[ehdrShoff:])
}

func (e *ELF) Sections() []ELFSection {
	return e.sections
}

// Repair copies every section's file offset into its address field.
//
// This runs opposite to the PE repair, which moves virtual locations into
// the file fields. Kept as is until the expected direction for ELF dumps is
// confirmed.
func (e *ELF) Repair() {
	for _, s := range e.sections {
		s.SetAddr(s.Offset())
	}
}
