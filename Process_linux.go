package dumper

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

const procRoot = "/proc"

// Process is a Session backed by procfs. Memory goes through /proc/<pid>/mem,
// the module inventory comes from /proc/<pid>/maps.
type Process struct {
	pid      uint32
	fs       afero.Fs
	logger   log.Logger
	mem      int // /proc/<pid>/mem descriptor, -1 when detached
	writable bool
}

func NewProcess(pid uint32, opts ...ProcessOption) *Process {
	o := applyProcessOptions(opts)
	return &Process{
		pid:    pid,
		fs:     o.fs,
		logger: log.With(o.logger, "pid", pid),
		mem:    -1,
	}
}

// FindProcess returns the first process whose argv[0] ends with name,
// compared path component by path component.
func FindProcess(name string, opts ...ProcessOption) (*Process, error) {
	o := applyProcessOptions(opts)

	pids, err := listPids(o.fs)
	if err != nil {
		return nil, err
	}

	for _, pid := range pids {
		cmdline, err := afero.ReadFile(o.fs, fmt.Sprintf("%s/%d/cmdline", procRoot, pid))
		if err != nil {
			continue
		}
		exe, _, _ := bytes.Cut(cmdline, []byte{0})
		if len(exe) == 0 || !utf8.Valid(exe) {
			continue
		}

		if pathEndsWith(string(exe), name) {
			return NewProcess(pid, opts...), nil
		}
	}

	return nil, ErrNotFound
}

// listPids returns the numeric /proc entries in ascending pid order, the
// order the kernel lists them in.
func listPids(fs afero.Fs) ([]uint32, error) {
	dir, err := fs.Open(procRoot)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}

	pids := lo.FilterMap(names, func(name string, _ int) (uint32, bool) {
		pid, err := strconv.ParseUint(name, 10, 32)
		return uint32(pid), err == nil
	})
	slices.Sort(pids)
	return pids, nil
}

// pathEndsWith reports whether the trailing components of p equal the
// components of suffix. An absolute suffix has to match the whole path.
func pathEndsWith(p, suffix string) bool {
	if strings.HasPrefix(suffix, "/") {
		return strings.HasPrefix(p, "/") && path.Clean(p) == path.Clean(suffix)
	}
	want := splitPath(suffix)
	have := splitPath(p)
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	have = have[len(have)-len(want):]
	for i := range want {
		if have[i] != want[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		parts = append(parts, part)
	}
	return parts
}

func (p *Process) Pid() uint32 {
	return p.pid
}

func (p *Process) memPath() string {
	return fmt.Sprintf("%s/%d/mem", procRoot, p.pid)
}

func (p *Process) Attach() error {
	if p.mem != -1 {
		return ErrAlreadyAttached
	}

	fd, err := unix.Open(p.memPath(), unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err == unix.EACCES || err == unix.EPERM || err == unix.EROFS {
		level.Debug(p.logger).Log("msg", "no write access to process memory, attaching read-only", "err", err)
		fd, err = unix.Open(p.memPath(), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	} else if err == nil {
		p.writable = true
	}
	if err != nil {
		return platformError("open "+p.memPath(), err)
	}

	p.mem = fd
	return nil
}

func (p *Process) Detach() error {
	if p.mem == -1 {
		return ErrNotAttached
	}

	err := unix.Close(p.mem)
	p.mem = -1
	p.writable = false
	return platformError("close "+p.memPath(), err)
}

func (p *Process) Attached() bool {
	return p.mem != -1
}

func (p *Process) ReadMemory(ea uintptr, buf []byte) error {
	if p.mem == -1 {
		return ErrNotAttached
	}
	if len(buf) == 0 {
		return nil
	}

	n, err := unix.Pread(p.mem, buf, int64(ea))
	if err != nil {
		return platformError(fmt.Sprintf("read %d bytes at %X", len(buf), ea), err)
	}
	if n != len(buf) {
		return platformError(fmt.Sprintf("read %d bytes at %X", len(buf), ea), io.ErrUnexpectedEOF)
	}
	return nil
}

func (p *Process) WriteMemory(ea uintptr, data []byte) error {
	if p.mem == -1 {
		return ErrNotAttached
	}
	if len(data) == 0 {
		return nil
	}
	if !p.writable {
		return platformError(fmt.Sprintf("write %d bytes at %X", len(data), ea), unix.EBADF)
	}

	n, err := unix.Pwrite(p.mem, data, int64(ea))
	if err != nil {
		return platformError(fmt.Sprintf("write %d bytes at %X", len(data), ea), err)
	}
	if n != len(data) {
		return platformError(fmt.Sprintf("write %d bytes at %X", len(data), ea), io.ErrShortWrite)
	}
	return nil
}

// Regions returns the process mapping table in table order.
func (p *Process) Regions() ([]Region, error) {
	maps, err := afero.ReadFile(p.fs, fmt.Sprintf("%s/%d/maps", procRoot, p.pid))
	if err != nil {
		return nil, platformError("read maps", err)
	}
	return ParseMaps(maps), nil
}

func (p *Process) FindModule(name string) (Module, error) {
	regions, err := p.Regions()
	if err != nil {
		return Module{}, err
	}

	m, err := ModuleFromRegions(regions, name)
	if err != nil {
		return Module{}, err
	}
	level.Debug(p.logger).Log("msg", "module located", "module", name, "base", fmt.Sprintf("0x%X", m.Base), "size", fmt.Sprintf("0x%X", m.Size))
	return m, nil
}
