package dumper

import (
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sys/windows"
)

// Process is a Session backed by a process handle. The module inventory comes
// from a ToolHelp module snapshot.
type Process struct {
	pid    uint32
	Handle windows.Handle
	Access uint32
	logger log.Logger
}

func NewProcess(pid uint32, opts ...ProcessOption) *Process {
	o := applyProcessOptions(opts)
	return &Process{
		pid:    pid,
		Access: o.access,
		logger: log.With(o.logger, "pid", pid),
	}
}

// FindProcess returns the first process whose executable name equals name,
// ignoring case.
func FindProcess(name string, opts ...ProcessOption) (*Process, error) {
	var pid uint32
	found := false

	err := walkProcesses(func(pe *windows.ProcessEntry32) bool {
		if strings.EqualFold(windows.UTF16ToString(pe.ExeFile[:]), name) {
			pid = pe.ProcessID
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	return NewProcess(pid, opts...), nil
}

func (p *Process) Pid() uint32 {
	return p.pid
}

func (p *Process) Attach() error {
	if p.Handle != 0 {
		return ErrAlreadyAttached
	}

	handle, err := windows.OpenProcess(p.Access, false, p.pid)
	if err != nil {
		return platformError("OpenProcess", err)
	}
	p.Handle = handle
	return nil
}

// Detach closes the process handle, but does not terminate the process.
func (p *Process) Detach() error {
	if p.Handle == 0 {
		return ErrNotAttached
	}

	err := windows.CloseHandle(p.Handle)
	p.Handle = 0
	return platformError("CloseHandle", err)
}

func (p *Process) Attached() bool {
	return p.Handle != 0
}

func (p *Process) ReadMemory(ea uintptr, buf []byte) error {
	if p.Handle == 0 {
		return ErrNotAttached
	}
	if len(buf) == 0 {
		return nil
	}

	var bytesRead uintptr
	err := windows.ReadProcessMemory(p.Handle, ea, &buf[0], uintptr(len(buf)), &bytesRead)
	if err != nil {
		return platformError(fmt.Sprintf("ReadProcessMemory(%X, %d)", ea, len(buf)), err)
	}
	if int(bytesRead) != len(buf) {
		return platformError(fmt.Sprintf("ReadProcessMemory(%X, %d)", ea, len(buf)), windows.ERROR_PARTIAL_COPY)
	}
	return nil
}

func (p *Process) WriteMemory(ea uintptr, data []byte) error {
	if p.Handle == 0 {
		return ErrNotAttached
	}
	if len(data) == 0 {
		return nil
	}

	var bytesWritten uintptr
	err := windows.WriteProcessMemory(p.Handle, ea, &data[0], uintptr(len(data)), &bytesWritten)
	if err != nil {
		return platformError(fmt.Sprintf("WriteProcessMemory(%X, %d)", ea, len(data)), err)
	}
	if int(bytesWritten) != len(data) {
		return platformError(fmt.Sprintf("WriteProcessMemory(%X, %d)", ea, len(data)), windows.ERROR_PARTIAL_COPY)
	}
	return nil
}

func (p *Process) FindModule(name string) (Module, error) {
	query := QueryName(name)

	var m Module
	found := false
	err := walkModules(p.pid, func(me *windows.ModuleEntry32) bool {
		if SnapshotName(windows.UTF16ToString(me.ExePath[:])) != query {
			return true
		}
		m = Module{
			Base: me.ModBaseAddr,
			Size: uintptr(me.ModBaseSize),
			Name: name,
		}
		found = true
		return false
	})
	if err != nil {
		return Module{}, err
	}
	if !found {
		return Module{}, ErrNotFound
	}

	level.Debug(p.logger).Log("msg", "module located", "module", name, "base", fmt.Sprintf("0x%X", m.Base), "size", fmt.Sprintf("0x%X", m.Size))
	return m, nil
}
