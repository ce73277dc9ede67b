package process

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkingDirectory is returned when the working directory is missing or not a directory.
	ErrInvalidWorkingDirectory = errors.New("invalid working directory")
	// ErrProgramNotFound is returned when the program cannot be resolved on PATH.
	ErrProgramNotFound = errors.New("program not found")
	// ErrPTYAllocation is returned when the pseudo-terminal or the child could not be started.
	ErrPTYAllocation = errors.New("pty allocation failed")
)

// SpawnError describes a failed process start. It matches its Reason and the
// underlying cause with errors.Is.
type SpawnError struct {
	Reason  error
	Program string
	Dir     string
	Err     error
}

func (e *SpawnError) Error() string {
	msg := fmt.Sprintf("failed to spawn %q: %v", e.Program, e.Reason)
	if e.Dir != "" {
		msg += fmt.Sprintf(" (dir %q)", e.Dir)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpawnError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
