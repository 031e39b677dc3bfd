package dumper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const wildcard = -1

// Pattern is a byte sequence where some positions match any byte.
type Pattern struct {
	data []int
}

func (p Pattern) Length() int {
	return len(p.data)
}

func (p Pattern) String() string {
	parts := make([]string, len(p.data))
	for i, c := range p.data {
		if c == wildcard {
			parts[i] = "??"
		} else {
			parts[i] = fmt.Sprintf("%02X", c)
		}
	}
	return strings.Join(parts, " ")
}

func (p Pattern) matchAt(buffer []byte, i int) bool {
	if i+len(p.data) > len(buffer) {
		return false
	}
	for j, c := range p.data {
		if c != wildcard && int(buffer[i+j]) != c {
			return false
		}
	}
	return true
}

// Find returns the offset of the first match in buffer, or -1.
func (p Pattern) Find(buffer []byte) int {
	if len(p.data) == 0 {
		return -1
	}
	for i := 0; i+len(p.data) <= len(buffer); i++ {
		if p.matchAt(buffer, i) {
			return i
		}
	}
	return -1
}

// FindAll returns the offsets of all matches in buffer, overlapping ones included.
func (p Pattern) FindAll(buffer []byte) []int {
	var offsets []int
	if len(p.data) == 0 {
		return offsets
	}
	for i := 0; i+len(p.data) <= len(buffer); i++ {
		if p.matchAt(buffer, i) {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// ParsePattern parses space separated hex bytes, "?" or "??" for a wildcard:
//
//	48 8B 05 ?? ?? ?? ?? 48 85 C0
func ParsePattern(src string) (Pattern, error) {
	p := Pattern{}
	for _, c := range strings.Fields(src) {
		if c == "?" || c == "??" {
			p.data = append(p.data, wildcard)
			continue
		}
		x, err := strconv.ParseUint(c, 16, 8)
		if err != nil {
			return Pattern{}, errors.Wrapf(err, "bad pattern byte %q", c)
		}
		p.data = append(p.data, int(x))
	}
	if len(p.data) == 0 {
		return Pattern{}, errors.New("empty pattern")
	}
	return p, nil
}

// PatternFromString matches the raw bytes of s.
func PatternFromString(s string) Pattern {
	p := Pattern{data: make([]int, len(s))}
	for i := 0; i < len(s); i++ {
		p.data[i] = int(s[i])
	}
	return p
}
