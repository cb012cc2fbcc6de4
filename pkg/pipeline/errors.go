package pipeline

import (
	"errors"
	"fmt"
)

// Fatal preparation failures.
var (
	ErrHardwareShortfall = errors.New("procedure needs more hardware than the rig has")
	ErrBufferFlasks      = errors.New("not enough empty buffer flasks")
	ErrMissingCartridge  = errors.New("no cartridge on the rig contains the chemical")
	ErrSanityCheck       = errors.New("sanity check failed")
	ErrBadProcedure      = errors.New("malformed procedure document")
	ErrExecutionFailed   = errors.New("device command failed")
)

// PrepError provides structured error information for preparation and
// execution failures.
type PrepError struct {
	Stage string // pipeline stage that failed (e.g. "hardware", "sanity")
	Step  string // step kind, when the failure belongs to one step
	Msg   string // human-readable detail
	Cause error  // underlying error
}

// Error implements the error interface.
func (e *PrepError) Error() string {
	switch {
	case e.Step != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Step, e.Msg, e.Cause)
	case e.Step != "":
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Step, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PrepError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *PrepError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}
