package resilience

import (
	"sync"
	"time"
)

// CircuitState is the lifecycle state of a CircuitBreaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// CircuitBreaker stops calling a failing backend for a cooldown period
// instead of retrying indefinitely. Closed transitions to Open after
// failureThreshold consecutive failures; Open transitions to HalfOpen
// once recoveryTimeout elapses and admits exactly one trial call, which
// decides between Closed and Open again.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration

	state         CircuitState
	failures      int
	openedAt      time.Time
	trialInFlight bool

	now func() time.Time

	// OnStateChange, if set, is called from a separate goroutine
	// whenever the breaker changes state.
	OnStateChange func(from, to CircuitState)
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// Call invokes op under the breaker's protection. While Open and inside
// the cooldown it fails fast with ErrCircuitOpen without invoking op.
func (cb *CircuitBreaker) Call(op func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := op()
	cb.record(err)
	return err
}

// State returns the current state, transitioning Open to HalfOpen if the
// cooldown has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.recoveryTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.recoveryTimeout {
			return ErrCircuitOpen
		}
		cb.transition(CircuitHalfOpen)
		cb.trialInFlight = true
		return nil
	case CircuitHalfOpen:
		if cb.trialInFlight {
			// Only one trial call probes the backend at a time.
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
		return nil
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialInFlight = false

	if err == nil {
		cb.failures = 0
		if cb.state != CircuitClosed {
			cb.transition(CircuitClosed)
		}
		return
	}

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.openedAt = cb.now()
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.openedAt = cb.now()
		cb.transition(CircuitOpen)
	}
}

// transition changes state. Must hold mu.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if to == CircuitOpen {
		cb.failures = 0
	}
	if cb.OnStateChange != nil && from != to {
		go cb.OnStateChange(from, to)
	}
}
