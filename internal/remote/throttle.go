package remote

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestInterval is the minimum spacing between outbound requests,
// imposed by the remote service's terms of use.
const DefaultRequestInterval = time.Second

// Throttle enforces a minimum interval between requests across arbitrarily
// many concurrent callers. A single mutex-protected slot holds the next
// allowed send instant; slot arithmetic is serialized while the actual wait
// happens on the calling goroutine, outside the mutex.
type Throttle struct {
	mu          sync.Mutex
	interval    time.Duration
	nextAllowed time.Time

	now func() time.Time
}

// NewThrottle creates a throttle with the given minimum inter-request
// interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
	}
}

// Wait blocks until this caller's reserved send slot arrives, or the context
// is cancelled. Slots are handed out FIFO in acquisition order: after N
// concurrent acquisitions the Nth caller's send time is at least
// (N-1)*interval after the first.
func (t *Throttle) Wait(ctx context.Context) error {
	wait := t.reserve()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve assigns the caller a send slot and returns how long it must wait
// for it. The slot stays consumed even if the caller later gives up.
func (t *Throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	wait := t.interval - now.Sub(t.nextAllowed)
	if wait < 0 {
		wait = 0
	}
	t.nextAllowed = now.Add(wait)
	return wait
}
