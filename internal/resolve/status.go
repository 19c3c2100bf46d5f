package resolve

import (
	"errors"
	"fmt"
)

// ExitStatus is the result code of the child.
type ExitStatus int

const (
	StatusOK             ExitStatus = 0
	StatusNotFound       ExitStatus = 7
	StatusNotImplemented ExitStatus = 13
)

var (
	// ErrNotFound means the carrier was not found in its unit.
	ErrNotFound = errors.New("target datablock not found in unit")
	// ErrNotImplemented means the child does not know the action.
	ErrNotImplemented = errors.New("resolve action not implemented")
	// ErrTimeout means the child did not finish in time and was killed.
	ErrTimeout = errors.New("secondary resolution timed out")
	// ErrUnexpectedExit means the child exited with a code outside the
	// ExitStatus enumeration.
	ErrUnexpectedExit = errors.New("secondary resolution exited unexpectedly")
)

// StatusFromCode maps a process exit code onto an ExitStatus.
func StatusFromCode(code int) (ExitStatus, bool) {
	switch s := ExitStatus(code); s {
	case StatusOK, StatusNotFound, StatusNotImplemented:
		return s, true
	}
	return 0, false
}

// Code returns the process exit code of the status.
func (s ExitStatus) Code() int {
	return int(s)
}

// Err returns nil for StatusOK and the matching sentinel otherwise.
func (s ExitStatus) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNotFound:
		return ErrNotFound
	case StatusNotImplemented:
		return ErrNotImplemented
	}
	return fmt.Errorf("%w: status %d", ErrUnexpectedExit, int(s))
}

func (s ExitStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	}
	return fmt.Sprintf("ExitStatus(%d)", int(s))
}

// UnexpectedExitError carries the exit code and the captured stderr of a
// child that failed outside the ExitStatus enumeration.
type UnexpectedExitError struct {
	Code   int
	Stderr string
}

func (e *UnexpectedExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit code %d", ErrUnexpectedExit, e.Code)
	}
	return fmt.Sprintf("%s: exit code %d: %s", ErrUnexpectedExit, e.Code, e.Stderr)
}

func (e *UnexpectedExitError) Unwrap() error {
	return ErrUnexpectedExit
}
