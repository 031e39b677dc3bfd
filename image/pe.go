package image

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	dosHeaderSize      = 64
	dosLfanewOffset    = 0x3C
	peSignatureSize    = 4
	coffHeaderSize     = 20
	peSectionEntrySize = 40

	optionalHeaderMagic64 = 0x20B

	// offsets inside the COFF file header
	coffNumberOfSections     = 2
	coffTimeDateStamp        = 4
	coffSizeOfOptionalHeader = 16

	// offsets inside the PE32+ optional header
	optMagic     = 0
	optImageBase = 24
	optMinSize   = optImageBase + 8

	// offsets inside a section header
	secVirtualSize      = 8
	secVirtualAddress   = 12
	secSizeOfRawData    = 16
	secPointerToRawData = 20
)

var peSignature = []byte{'P', 'E', 0, 0}

var le = binary.LittleEndian

// PE is a view of a PE32+ image's headers.
type PE struct {
	coff     []byte
	optional []byte
	sections []PESection
}

// PESection is one 40-byte section header.
type PESection []byte

func (s PESection) Name() string {
	return string(bytes.TrimRight(s[:8], "\x00"))
}

func (s PESection) VirtualSize() uint32      { return le.Uint32(s[secVirtualSize:]) }
func (s PESection) VirtualAddress() uint32   { return le.Uint32(s[secVirtualAddress:]) }
func (s PESection) SizeOfRawData() uint32    { return le.Uint32(s[secSizeOfRawData:]) }
func (s PESection) PointerToRawData() uint32 { return le.Uint32(s[secPointerToRawData:]) }

func (s PESection) SetSizeOfRawData(v uint32)    { le.PutUint32(s[secSizeOfRawData:], v) }
func (s PESection) SetPointerToRawData(v uint32) { le.PutUint32(s[secPointerToRawData:], v) }

// ParsePE builds a view over data. It fails with ErrInvalidImage unless the
// DOS header, NT headers and the whole section table lie inside data.
func ParsePE(data []byte) (*PE, error) {
	dos, err := span(data, 0, dosHeaderSize, "DOS header")
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(dos, dosMagic) {
		return nil, errors.Wrap(ErrInvalidImage, "no MZ signature")
	}

	ntOffset := uint64(le.Uint32(dos[dosLfanewOffset:]))
	sig, err := span(data, ntOffset, peSignatureSize, "PE signature")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, peSignature) {
		return nil, errors.Wrap(ErrInvalidImage, "no PE signature")
	}

	coffOffset := ntOffset + peSignatureSize
	coff, err := span(data, coffOffset, coffHeaderSize, "COFF header")
	if err != nil {
		return nil, err
	}

	optOffset := coffOffset + coffHeaderSize
	optSize := uint64(le.Uint16(coff[coffSizeOfOptionalHeader:]))
	if optSize < optMinSize {
		return nil, errors.Wrapf(ErrInvalidImage, "optional header too small (0x%X)", optSize)
	}
	optional, err := span(data, optOffset, optSize, "optional header")
	if err != nil {
		return nil, err
	}
	if magic := le.Uint16(optional[optMagic:]); magic != optionalHeaderMagic64 {
		return nil, errors.Wrapf(ErrInvalidImage, "not a PE32+ image (optional header magic 0x%X)", magic)
	}

	n := uint64(le.Uint16(coff[coffNumberOfSections:]))
	table, err := span(data, optOffset+optSize, n*peSectionEntrySize, "section table")
	if err != nil {
		return nil, err
	}

	pe := &PE{
		coff:     coff,
		optional: optional,
		sections: make([]PESection, n),
	}
	for i := range pe.sections {
		pe.sections[i] = PESection(table[i*peSectionEntrySize : (i+1)*peSectionEntrySize])
	}
	return pe, nil
}

func (pe *PE) NumberOfSections() int {
	return len(pe.sections)
}

func (pe *PE) Sections() []PESection {
	return pe.sections
}

// TimeDateStamp is the link time, in seconds since the Unix epoch.
func (pe *PE) TimeDateStamp() uint32 {
	return le.Uint32(pe.coff[coffTimeDateStamp:])
}

func (pe *PE) ImageBase() uint64 {
	return le.Uint64(pe.optional[optImageBase:])
}

func (pe *PE) SetImageBase(base uint64) {
	le.PutUint64(pe.optional[optImageBase:], base)
}

// Repair records base as the image base and points every section's raw data
// at its virtual location, so the dump is addressed the way it sat in memory.
func (pe *PE) Repair(base uint64) {
	pe.SetImageBase(base)
	for _, s := range pe.sections {
		s.SetPointerToRawData(s.VirtualAddress())
		s.SetSizeOfRawData(s.VirtualSize())
	}
}
