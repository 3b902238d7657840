package resilience

import (
	"errors"
)

var (
	// ErrCircuitOpen is returned without invoking the operation while the
	// breaker is cooling down.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)
