package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/Cyclone1070/aide/internal/provider/models"
)

// Retry re-executes an operation on retryable provider failures with
// exponential backoff and jitter. Terminal failures and exhausted
// attempts return the last error unchanged so callers see the backend's
// own classification.
type Retry struct {
	// MaxAttempts is the total number of attempts (1 = no retries).
	MaxAttempts int

	// InitialDelay is the backoff before the first retry; it doubles
	// after each attempt up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// JitterFraction randomizes each delay by up to +fraction.
	JitterFraction float64

	sleep func(ctx context.Context, d time.Duration) error
	randF func() float64
}

// NewRetry creates a retry policy with the given parameters.
func NewRetry(maxAttempts int, initialDelay, maxDelay time.Duration, jitterFraction float64) *Retry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = time.Second
	}
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}
	return &Retry{
		MaxAttempts:    maxAttempts,
		InitialDelay:   initialDelay,
		MaxDelay:       maxDelay,
		JitterFraction: jitterFraction,
		sleep:          sleepCtx,
		randF:          rand.Float64,
	}
}

// Execute runs op, retrying retryable failures until attempts run out.
func (r *Retry) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	delay := r.InitialDelay

	var err error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !models.IsRetryable(err) || attempt == r.MaxAttempts {
			return err
		}

		wait := delay
		if after := models.GetRetryAfter(err); after != nil && *after > wait {
			// The backend told us when to come back; believe it.
			wait = *after
		}
		wait += time.Duration(float64(wait) * r.JitterFraction * r.randF())

		if err := r.sleep(ctx, wait); err != nil {
			return err
		}

		delay *= 2
		if delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}
	return err
}
