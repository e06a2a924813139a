package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks a violated call contract (nil or missized visited
	// set, malformed fragment, foreign frontier record). It aborts the current run.
	ErrPrecondition = errors.New("precondition violated")

	// ErrConfiguration marks invalid settings detected before any work starts
	// (zero workers, missing paths, unknown output format).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInput marks malformed input data (reserved or duplicate vertex ids,
	// empty edge list).
	ErrInput = errors.New("invalid input")
)

// Preconditionf returns an error wrapping ErrPrecondition.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// Configf returns an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Inputf returns an error wrapping ErrInput.
func Inputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}

// IOError describes a failed read, write or parse of a graph file.
// Offset is the byte offset inside Path where the failure was detected,
// or -1 when unknown.
type IOError struct {
	Op     string
	Path   string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s %s at offset %d: %v", e.Op, e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err with the operation, file and offset it happened at.
func NewIOError(op, path string, offset int64, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Offset: offset, Err: err}
}
