package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, so tests never sleep for real.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time            { return c.t }
func (c *fakeClock) advance(d time.Duration)   { c.t = c.t.Add(d) }

func newTestLimiter(rpm, tpm int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(rpm, tpm)
	l.now = clock.now
	l.sleep = func(ctx context.Context, d time.Duration) error {
		clock.advance(d)
		return nil
	}
	return l, clock
}

func TestRateLimiterAllowsUpToRequestBudget(t *testing.T) {
	l, _ := newTestLimiter(3, 0)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background(), 0))
		l.Record(0)
	}
	assert.Equal(t, 3, l.InWindow())
}

func TestRateLimiterDelaysExcessRequests(t *testing.T) {
	l, clock := newTestLimiter(2, 0)

	require.NoError(t, l.Wait(context.Background(), 0))
	l.Record(0)
	clock.advance(10 * time.Second)
	require.NoError(t, l.Wait(context.Background(), 0))
	l.Record(0)

	// Third call must wait until the first sample leaves the window.
	before := clock.t
	require.NoError(t, l.Wait(context.Background(), 0))
	l.Record(0)

	waited := clock.t.Sub(before)
	assert.Equal(t, 50*time.Second, waited, "should wait exactly until the oldest sample expires")

	// At no point were more than 2 calls inside any 60s window.
	assert.LessOrEqual(t, l.InWindow(), 2)
}

func TestRateLimiterTokenBudget(t *testing.T) {
	l, clock := newTestLimiter(0, 100)

	require.NoError(t, l.Wait(context.Background(), 60))
	l.Record(60)

	// 60 + 50 > 100, so this waits for the first sample to expire.
	before := clock.t
	require.NoError(t, l.Wait(context.Background(), 50))
	l.Record(50)
	assert.Equal(t, time.Minute, clock.t.Sub(before))
}

func TestRateLimiterOversizedEstimateDrainsWindow(t *testing.T) {
	l, clock := newTestLimiter(0, 100)

	require.NoError(t, l.Wait(context.Background(), 40))
	l.Record(40)

	// The estimate alone exceeds the budget; the limiter waits for an
	// empty window and lets the call through alone rather than blocking
	// forever.
	before := clock.t
	require.NoError(t, l.Wait(context.Background(), 150))
	assert.Equal(t, time.Minute, clock.t.Sub(before))
}

func TestRateLimiterWaitDoesNotConsumeBudget(t *testing.T) {
	l, _ := newTestLimiter(5, 0)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background(), 0))
	}
	assert.Equal(t, 0, l.InWindow(), "Wait alone must not record usage")
}

func TestRateLimiterCancelledWhileWaiting(t *testing.T) {
	l, _ := newTestLimiter(1, 0)
	l.sleep = sleepCtx // real sleep so cancellation is exercised

	require.NoError(t, l.Wait(context.Background(), 0))
	l.Record(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
