package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTranscriptState is returned when an append would violate
	// the transcript's role-alternation invariant.
	ErrInvalidTranscriptState = errors.New("invalid transcript state")

	// ErrUnknownSessionVersion is returned when a session file declares a
	// version this build does not understand.
	ErrUnknownSessionVersion = errors.New("unknown session file version")
)

// TranscriptError describes a rejected append with enough context to debug it.
type TranscriptError struct {
	Op     string // the append operation that was rejected
	Reason string
}

func (e *TranscriptError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidTranscriptState, e.Op, e.Reason)
}

func (e *TranscriptError) Unwrap() error { return ErrInvalidTranscriptState }
