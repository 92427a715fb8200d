package stream

import (
	"context"
	"math/rand"
	"time"
)

// Backoff is a reusable reconnect policy: the delay doubles on every failure
// up to a cap and resets to the base on success. A jitter fraction spreads
// reconnects out so parallel streams do not hammer the endpoint in lockstep.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	jitter  float64
	current time.Duration
}

func NewBackoff(base, max time.Duration, jitter float64) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Backoff{base: base, max: max, jitter: jitter, current: base}
}

// Next returns the delay to wait before the next attempt and advances the
// policy.
func (b *Backoff) Next() time.Duration {
	delay := b.current

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	if b.jitter > 0 {
		spread := float64(delay) * b.jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Reset returns the policy to its base delay after a successful connection.
func (b *Backoff) Reset() {
	b.current = b.base
}

// wait sleeps for the policy's next delay. Returns true when the context was
// cancelled during the wait.
func (b *Backoff) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
