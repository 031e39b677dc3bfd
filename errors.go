package dumper

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a process or module lookup has no match.
	ErrNotFound = errors.New("not found")

	ErrNotAttached     = errors.New("not attached")
	ErrAlreadyAttached = errors.New("already attached")

	// ErrEmptyModule is returned for a module descriptor with a zero base or size.
	ErrEmptyModule = errors.New("empty module")

	ErrUnsupported = errors.New("unsupported platform")
)

// PlatformError wraps a failed OS API call.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

func platformError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PlatformError{Op: op, Err: err}
}

// Stage names the step of the dump pipeline an error came from.
type Stage string

const (
	StageLocate    Stage = "locate"
	StageCapture   Stage = "capture"
	StageRepair    Stage = "repair"
	StageTimestamp Stage = "timestamp"
	StageWrite     Stage = "write"
)

// StageError tags a per-module failure with the module name and the stage that failed.
type StageError struct {
	Module string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Module, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
