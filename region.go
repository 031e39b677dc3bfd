package dumper

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Region is one entry of a process memory-mapping table (/proc/<pid>/maps).
type Region struct {
	Start  uintptr
	End    uintptr
	Perms  string
	Offset uint64
	Inode  uint64
	Path   string
}

func (r Region) Size() uintptr {
	return r.End - r.Start
}

func (r Region) String() string {
	return fmt.Sprintf("%12X-%12X %s %8X %s", r.Start, r.End, r.Perms, r.Offset, r.Path)
}

// ParseMaps parses a mapping table, preserving table order.
//
//	7f2c4a600000-7f2c4a628000 r--p 00000000 08:01 1835117    /usr/lib/x86_64-linux-gnu/libc.so.6
//
// Lines without a backing path or with unparsable addresses are skipped.
func ParseMaps(maps []byte) []Region {
	var regions []Region

	scanner := bufio.NewScanner(bytes.NewReader(maps))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		region, ok := parseMapsLine(scanner.Text())
		if !ok {
			continue
		}
		regions = append(regions, region)
	}

	return regions
}

func parseMapsLine(line string) (Region, bool) {
	parts := strings.SplitN(line, " ", 6)
	if len(parts) != 6 {
		return Region{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimLeft(parts[i], " ")
	}

	start, end, ok := strings.Cut(parts[0], "-")
	if !ok {
		return Region{}, false
	}
	startAddr, err := strconv.ParseUint(start, 16, 64)
	if err != nil {
		return Region{}, false
	}
	endAddr, err := strconv.ParseUint(end, 16, 64)
	if err != nil || endAddr < startAddr {
		return Region{}, false
	}

	// offset and inode are informational only
	offset, _ := strconv.ParseUint(parts[2], 16, 64)
	inode, _ := strconv.ParseUint(parts[4], 10, 64)

	return Region{
		Start:  uintptr(startAddr),
		End:    uintptr(endAddr),
		Perms:  parts[1],
		Offset: offset,
		Inode:  inode,
		Path:   parts[5],
	}, true
}

// ModuleFromRegions merges every region backed by the named module into one
// Module. Base is the start of the first matching region in table order and
// the size reaches up to the end of the last one; regions in between that
// belong to other files are part of the span.
func ModuleFromRegions(regions []Region, name string) (Module, error) {
	query := QueryName(name)

	found := lo.Filter(regions, func(r Region, _ int) bool {
		file, ok := MappingName(r.Path)
		return ok && file == query
	})
	if len(found) == 0 {
		return Module{}, ErrNotFound
	}

	first, last := found[0], found[len(found)-1]
	if last.End < first.Start {
		return Module{}, ErrEmptyModule
	}

	return Module{
		Base: first.Start,
		Size: last.End - first.Start,
		Name: name,
	}, nil
}
