// Package debounce coalesces bursts of events into a single call made
// once the input has been quiet for a fixed period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function after quiet has
// elapsed with no further Trigger. It is safe for concurrent use.
type Debouncer struct {
	quiet   time.Duration
	running sync.WaitGroup // timer-fired calls still executing

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64 // bumped on every Trigger; a stale timer sees a newer value
	stopped bool
}

// New returns a Debouncer with the given quiet period.
func New(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet}
}

// Trigger schedules fn, replacing any pending function and restarting the
// quiet period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = fn
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	if fn != nil {
		d.running.Add(1)
	}
	d.mu.Unlock()
	if fn != nil {
		defer d.running.Done()
		fn()
	}
}

// Flush runs the pending function now, if any, on the calling goroutine,
// then waits for any call the timer already started.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
	d.running.Wait()
}

// Stop drops the pending function. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
