package image

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

type testSection struct {
	name        string
	virtualAddr uint32
	virtualSize uint32
	rawOffset   uint32
	rawSize     uint32
}

const (
	testPEImageBase = 0x180000000
	testPEImageSize = 0x4000
	testPENtOffset  = 0x80
)

// buildPE lays out a PE32+ image the way the loader maps it: headers at
// offset 0, sections at their virtual addresses. The section headers still
// carry the on-disk raw offsets.
func buildPE(t *testing.T, timestamp uint32, sections []testSection) []byte {
	t.Helper()

	var buf bytes.Buffer
	dos := make([]byte, testPENtOffset)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[dosLfanewOffset:], testPENtOffset)
	buf.Write(dos)
	buf.Write(peSignature)

	opt := pe.OptionalHeader64{
		Magic:               optionalHeaderMagic64,
		ImageBase:           testPEImageBase,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         testPEImageSize,
		SizeOfHeaders:       0x400,
		Subsystem:           3,
		NumberOfRvaAndSizes: 16,
	}
	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     uint16(len(sections)),
		TimeDateStamp:        timestamp,
		SizeOfOptionalHeader: uint16(binary.Size(opt)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_DLL,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, fh))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, opt))

	for _, s := range sections {
		sh := pe.SectionHeader32{
			VirtualSize:      s.virtualSize,
			VirtualAddress:   s.virtualAddr,
			SizeOfRawData:    s.rawSize,
			PointerToRawData: s.rawOffset,
			Characteristics:  pe.IMAGE_SCN_MEM_READ,
		}
		copy(sh.Name[:], s.name)
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, sh))
	}

	image := make([]byte, testPEImageSize)
	copy(image, buf.Bytes())
	for _, s := range sections {
		for i := uint32(0); i < s.virtualSize; i++ {
			image[s.virtualAddr+i] = s.name[1]
		}
	}
	return image
}

var testPESections = []testSection{
	{name: ".text", virtualAddr: 0x1000, virtualSize: 0x0E40, rawOffset: 0x400, rawSize: 0x1000},
	{name: ".rdata", virtualAddr: 0x2000, virtualSize: 0x0300, rawOffset: 0x1400, rawSize: 0x400},
	{name: ".data", virtualAddr: 0x3000, virtualSize: 0x0120, rawOffset: 0x1800, rawSize: 0x200},
}

type testELFSection struct {
	addr   uint64
	offset uint64
	size   uint64
}

// buildELF returns a little-endian ELF64 header followed by a section header
// table at shoff. size is the total image size.
func buildELF(t *testing.T, order binary.ByteOrder, shoff uint64, size int, sections []testELFSection) []byte {
	t.Helper()

	hdr := elf.Header64{
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    elfHeaderSize,
		Shentsize: elfSectionEntrySize,
		Shnum:     uint16(len(sections)),
	}
	copy(hdr.Ident[:], elfMagic)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	if order == binary.BigEndian {
		hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	} else {
		hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	}

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, order, hdr))

	image := make([]byte, size)
	copy(image, buf.Bytes())

	if shoff == 0 {
		return image
	}

	buf.Reset()
	for i, s := range sections {
		sh := elf.Section64{
			Name: uint32(i),
			Type: uint32(elf.SHT_PROGBITS),
			Addr: s.addr,
			Off:  s.offset,
			Size: s.size,
		}
		if i == 0 {
			sh = elf.Section64{}
		}
		require.NoError(t, binary.Write(&buf, order, sh))
	}
	require.LessOrEqual(t, int(shoff)+buf.Len(), size, "section table must fit the image")
	copy(image[shoff:], buf.Bytes())
	return image
}

var testELFSections = []testELFSection{
	{},
	{addr: 0x1000, offset: 0x0400, size: 0x200},
	{addr: 0x2000, offset: 0x0600, size: 0x100},
	{addr: 0x3000, offset: 0x0700, size: 0x080},
}
