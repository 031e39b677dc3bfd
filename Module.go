package dumper

import (
	"fmt"
	"path"
	"strings"
)

// Module describes one loaded binary in the target's address space.
type Module struct {
	Base uintptr // Base address of the module
	Size uintptr // Size of the module, in bytes

	Name string // Name the module was matched by
}

func (m Module) Valid() bool {
	return m.Base != 0 && m.Size > 0
}

func (m Module) End() uintptr {
	return m.Base + m.Size
}

func (m Module) String() string {
	return fmt.Sprintf("%s ba:%X size:%X", m.Name, m.Base, m.Size)
}

// trimExt drops the last extension of the final path element.
// A leading dot alone doesn't count as an extension.
func trimExt(name string) string {
	base := path.Base(name)
	ext := path.Ext(base)
	if ext == "" || ext == base {
		return name
	}
	return name[:len(name)-len(ext)]
}

// QueryName is the normalized form of a module name given by the user:
// lowercase, last extension stripped.
func QueryName(name string) string {
	return trimExt(strings.ToLower(name))
}

// SnapshotName normalizes a module path from a module snapshot table:
// lowercase file name with the last extension stripped.
func SnapshotName(exePath string) string {
	exePath = strings.ReplaceAll(exePath, `\`, "/")
	return trimExt(path.Base(strings.ToLower(exePath)))
}

// MappingName normalizes the backing file of a mapping-table entry:
// lowercase file name cut at the first dot. Returns false for entries
// that have no file name.
func MappingName(file string) (string, bool) {
	if file == "" || file == ".." || strings.HasSuffix(file, "/..") {
		return "", false
	}
	base := path.Base(file)
	if base == "/" || base == "." {
		return "", false
	}
	name, _, _ := strings.Cut(strings.ToLower(base), ".")
	return name, true
}
