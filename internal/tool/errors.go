package tool

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTool is returned when a call names a tool that was never
	// registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when call arguments do not conform
	// to the tool's declared schema. The handler is never invoked.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrInvalidPattern is returned by search tools when the requested
	// pattern fails to compile, as opposed to the search itself failing.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrExecutionFailed wraps handler failures that are not sandbox or
	// argument problems.
	ErrExecutionFailed = errors.New("tool execution failed")

	// ErrBinaryFile is returned instead of garbage text when a file
	// fails the binary-content heuristic.
	ErrBinaryFile = errors.New("binary file")
)

// ArgumentError describes a schema-validation failure for one call.
type ArgumentError struct {
	Tool   string
	Detail string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%v for %s: %s", ErrInvalidArguments, e.Tool, e.Detail)
}
func (e *ArgumentError) Unwrap() error { return ErrInvalidArguments }
