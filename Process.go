package dumper

import (
	"github.com/go-kit/log"
	"github.com/spf13/afero"
)

// STANDARD_RIGHTS_REQUIRED | SYNCHRONIZE | 0xFFF
const PROCESS_ALL_ACCESS = 0x000F0000 | 0x00100000 | 0xFFF

// Session gives raw access to the address space of one target process.
//
// A Session starts detached. Attach acquires whatever the platform needs to
// touch the target's memory and Detach releases it. A Session is not safe for
// concurrent use.
type Session interface {
	Pid() uint32
	Attach() error
	Detach() error
	Attached() bool

	// ReadMemory fills buf with the bytes at ea. A short read is an error.
	ReadMemory(ea uintptr, buf []byte) error
	WriteMemory(ea uintptr, data []byte) error

	// FindModule locates a loaded module by name.
	FindModule(name string) (Module, error)
}

type ProcessOption func(*processOptions)

type processOptions struct {
	logger log.Logger
	fs     afero.Fs
	access uint32
}

func defaultProcessOptions() processOptions {
	return processOptions{
		logger: log.NewNopLogger(),
		fs:     afero.NewOsFs(),
		access: PROCESS_ALL_ACCESS,
	}
}

func WithLogger(logger log.Logger) ProcessOption {
	return func(o *processOptions) {
		o.logger = logger
	}
}

// WithFS sets the file system procfs is read from. Only used where the
// platform exposes process information as files.
func WithFS(fs afero.Fs) ProcessOption {
	return func(o *processOptions) {
		o.fs = fs
	}
}

// WithAccess sets the access rights requested on attach. Only used where the
// platform hands out access-checked process handles.
func WithAccess(access uint32) ProcessOption {
	return func(o *processOptions) {
		o.access = access
	}
}

func applyProcessOptions(opts []ProcessOption) processOptions {
	o := defaultProcessOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
