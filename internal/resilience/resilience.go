// Package resilience gates every outbound provider call behind three
// composable primitives, applied in order: rate limiting, circuit
// breaking, and retry with exponential backoff.
package resilience

import (
	"context"
)

// Context bundles the rate limiter, breaker, and retry policy shared by
// every call to one backend endpoint. It is passed by reference into the
// provider layer rather than living in a package-level singleton, so a
// multi-session extension gets one Context per endpoint for free. All
// mutable state behind it is mutex-protected.
type Context struct {
	Limiter *RateLimiter
	Breaker *CircuitBreaker
	Retry   *Retry
}

// NewContext assembles a resilience context from its parts.
func NewContext(limiter *RateLimiter, breaker *CircuitBreaker, retry *Retry) *Context {
	return &Context{Limiter: limiter, Breaker: breaker, Retry: retry}
}

// Do executes op under the full stack: wait for rate budget, then pass
// through the breaker, which guards the retry loop around the actual
// call. The limiter records usage per attempt, at the moment the call is
// actually issued.
func (c *Context) Do(ctx context.Context, estimatedTokens int, op func(ctx context.Context) error) error {
	if err := c.Limiter.Wait(ctx, estimatedTokens); err != nil {
		return err
	}
	return c.Breaker.Call(func() error {
		return c.Retry.Execute(ctx, func(ctx context.Context) error {
			c.Limiter.Record(estimatedTokens)
			return op(ctx)
		})
	})
}
