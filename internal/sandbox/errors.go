package sandbox

import (
	"errors"
	"fmt"
)

var (
	ErrPathEscape      = errors.New("path is outside the sandbox root")
	ErrNotFound        = errors.New("file not found")
	ErrTooLarge        = errors.New("file exceeds the size limit")
	ErrDeniedExtension = errors.New("file extension not allowed")
	ErrRootNotSet      = errors.New("sandbox root not set")
	ErrNotADirectory   = errors.New("not a directory")
)

// RootError is returned when the sandbox root itself is invalid.
type RootError struct {
	Root  string
	Cause error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("invalid sandbox root %s: %v", e.Root, e.Cause)
}
func (e *RootError) Unwrap() error { return e.Cause }

// Violation wraps a rejected path with the sentinel that rejected it.
type Violation struct {
	Path string
	Err  error
}

func (e *Violation) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}
func (e *Violation) Unwrap() error { return e.Err }
