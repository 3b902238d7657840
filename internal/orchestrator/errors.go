package orchestrator

import "errors"

// ErrMaxIterationsExceeded is returned when a single operator turn burns
// through the tool-call iteration budget without producing a final text
// answer. The transcript stays intact so the session can continue.
var ErrMaxIterationsExceeded = errors.New("max tool iterations exceeded")
