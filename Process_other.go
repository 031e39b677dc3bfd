//go:build !linux && !windows

package dumper

type Process struct {
	pid uint32
}

func NewProcess(pid uint32, opts ...ProcessOption) *Process {
	return &Process{pid: pid}
}

func FindProcess(name string, opts ...ProcessOption) (*Process, error) {
	return nil, ErrUnsupported
}

func (p *Process) Pid() uint32                               { return p.pid }
func (p *Process) Attach() error                             { return ErrUnsupported }
func (p *Process) Detach() error                             { return ErrNotAttached }
func (p *Process) Attached() bool                            { return false }
func (p *Process) ReadMemory(ea uintptr, buf []byte) error   { return ErrNotAttached }
func (p *Process) WriteMemory(ea uintptr, data []byte) error { return ErrNotAttached }
func (p *Process) FindModule(name string) (Module, error)    { return Module{}, ErrUnsupported }
