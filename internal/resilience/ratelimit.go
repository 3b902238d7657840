package resilience

import (
	"context"
	"sync"
	"time"
)

// rateWindow is the sliding window over which both budgets apply.
const rateWindow = time.Minute

type usageSample struct {
	at     time.Time
	tokens int
}

// RateLimiter enforces a requests-per-minute and tokens-per-minute budget
// over a sliding window of timestamped usage samples. Callers Wait before
// issuing a request and Record once it is actually issued, so an aborted
// call never consumes budget.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	tokensPerMinute   int
	samples           []usageSample

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter with the given budgets. A budget of
// zero or less disables that dimension.
func NewRateLimiter(requestsPerMinute, tokensPerMinute int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokensPerMinute:   tokensPerMinute,
		now:               time.Now,
		sleep:             sleepCtx,
	}
}

// Wait blocks until issuing a call of estimatedTokens would not exceed
// either budget, or until ctx is cancelled. It does not record the call.
func (l *RateLimiter) Wait(ctx context.Context, estimatedTokens int) error {
	for {
		l.mu.Lock()
		l.prune()
		delay := l.requiredDelay(estimatedTokens)
		l.mu.Unlock()

		if delay <= 0 {
			return nil
		}
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Record registers an issued call against the window.
func (l *RateLimiter) Record(tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	l.samples = append(l.samples, usageSample{at: l.now(), tokens: tokens})
}

// InWindow returns the number of recorded calls still inside the window.
func (l *RateLimiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	return len(l.samples)
}

// prune drops samples older than the window. Must hold mu.
func (l *RateLimiter) prune() {
	cutoff := l.now().Add(-rateWindow)
	valid := l.samples[:0]
	for _, s := range l.samples {
		if s.at.After(cutoff) {
			valid = append(valid, s)
		}
	}
	l.samples = valid
}

// requiredDelay computes the minimum delay such that neither budget would
// be exceeded if the call proceeded after it. Must hold mu.
func (l *RateLimiter) requiredDelay(estimatedTokens int) time.Duration {
	var delay time.Duration
	now := l.now()

	if l.requestsPerMinute > 0 && len(l.samples) >= l.requestsPerMinute {
		// The call fits once the oldest excess sample leaves the window.
		oldest := l.samples[len(l.samples)-l.requestsPerMinute]
		if d := oldest.at.Add(rateWindow).Sub(now); d > delay {
			delay = d
		}
	}

	if l.tokensPerMinute > 0 {
		total := 0
		for _, s := range l.samples {
			total += s.tokens
		}
		if total+estimatedTokens > l.tokensPerMinute {
			excess := total + estimatedTokens - l.tokensPerMinute
			if excess >= total && len(l.samples) > 0 {
				// Even a fully drained window cannot absorb the
				// estimate; wait for it to empty and let the
				// oversized call through alone.
				newest := l.samples[len(l.samples)-1]
				if d := newest.at.Add(rateWindow).Sub(now); d > delay {
					delay = d
				}
			} else {
				// Expire oldest samples until the estimate fits.
				freed := 0
				for _, s := range l.samples {
					freed += s.tokens
					if freed >= excess {
						if d := s.at.Add(rateWindow).Sub(now); d > delay {
							delay = d
						}
						break
					}
				}
			}
		}
	}

	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
