// Package image interprets captured module images and rewrites their section
// location fields so a memory copy reads as a self-consistent binary.
//
// Views in this package borrow the captured buffer: every header range is
// checked against the buffer length when the view is built, and field
// accessors only ever index those checked sub-slices.
package image

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidImage = errors.New("invalid image")

type Format int

const (
	FormatUnknown Format = iota
	FormatPE
	FormatELF
)

func (f Format) String() string {
	switch f {
	case FormatPE:
		return "pe"
	case FormatELF:
		return "elf"
	default:
		return "unknown"
	}
}

var (
	dosMagic = []byte("MZ")
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
)

// Detect looks at the signature at the start of data.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, dosMagic):
		return FormatPE
	case bytes.HasPrefix(data, elfMagic):
		return FormatELF
	default:
		return FormatUnknown
	}
}

// Repair fixes the section table of a captured image in place. base is the
// address the image was captured from. On error data is left untouched.
func Repair(data []byte, base uint64) (Format, error) {
	format := Detect(data)
	switch format {
	case FormatPE:
		pe, err := ParsePE(data)
		if err != nil {
			return format, err
		}
		pe.Repair(base)
	case FormatELF:
		elf, err := ParseELF(data)
		if err != nil {
			return format, err
		}
		elf.Repair()
	default:
		return format, errors.Wrap(ErrInvalidImage, "unknown signature")
	}
	return format, nil
}

// Timestamp returns the date a dump is named after: the PE build timestamp
// for PE images and the capture date otherwise. The result is a UTC midnight.
func Timestamp(data []byte, now time.Time) (time.Time, error) {
	if Detect(data) != FormatPE {
		return day(now), nil
	}

	pe, err := ParsePE(data)
	if err != nil {
		return time.Time{}, err
	}
	return day(time.Unix(int64(pe.TimeDateStamp()), 0)), nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// span returns data[off:off+size] or ErrInvalidImage if that range doesn't fit.
func span(data []byte, off, size uint64, what string) ([]byte, error) {
	end := off + size
	if end < off || end > uint64(len(data)) {
		return nil, errors.Wrapf(ErrInvalidImage, "%s at 0x%X+0x%X past end of image (0x%X)", what, off, size, len(data))
	}
	return data[off:end], nil
}
