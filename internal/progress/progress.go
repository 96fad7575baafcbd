// Package progress defines the listener contract long-running engines report
// through, plus small implementations for tasks and tests.
package progress

import "sync/atomic"

// Listener receives progress updates from an import or export run and lets
// the run poll for cooperative cancellation between records.
type Listener interface {
	// SetMax announces the expected number of items once it is known.
	SetMax(total int)
	// Step reports that n further items were processed.
	Step(n int)
	// IsCancelled is polled once per record; a true result stops the run
	// at the next record boundary.
	IsCancelled() bool
}

// Nop is a Listener that ignores updates and never cancels.
type Nop struct{}

func (Nop) SetMax(int)        {}
func (Nop) Step(int)          {}
func (Nop) IsCancelled() bool { return false }

// Tracker is a concurrency-safe Listener with an externally settable cancel
// flag. The task layer hands one to the running engine and flips the flag
// when a stop is requested.
type Tracker struct {
	max       atomic.Int64
	done      atomic.Int64
	cancelled atomic.Bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) SetMax(total int) {
	t.max.Store(int64(total))
}

func (t *Tracker) Step(n int) {
	t.done.Add(int64(n))
}

func (t *Tracker) IsCancelled() bool {
	return t.cancelled.Load()
}

// Cancel requests a stop at the next record boundary.
func (t *Tracker) Cancel() {
	t.cancelled.Store(true)
}

// Snapshot returns the current processed count and expected total.
func (t *Tracker) Snapshot() (done, max int) {
	return int(t.done.Load()), int(t.max.Load())
}
