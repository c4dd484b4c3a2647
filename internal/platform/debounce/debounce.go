// Package debounce coalesces bursts of calls into a single delayed invocation.
package debounce

import (
	"sync"
	"time"

	"github.com/travelplan/itinerary-api/internal/ports/out/clock"
)

// Scheduler is the subset of clock.Clock the debouncer needs.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) clock.Timer
}

// Debouncer runs fn once, delay after the most recent Trigger.
//
// A generation counter guards every scheduled callback: a timer that fires after
// it was superseded (Trigger), cancelled (Cancel) or torn down (Stop) does nothing,
// even if its Stop lost the race with the runtime.
type Debouncer struct {
	sched Scheduler
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	gen     uint64
	timer   clock.Timer
	pending bool
	stopped bool
}

func New(sched Scheduler, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: sched, delay: delay, fn: fn}
}

// Trigger cancels any scheduled run and schedules a new one. It is a no-op after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.cancelLocked()
	d.pending = true
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the scheduled run, if any, and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.pending
	d.cancelLocked()
	return was
}

// Stop cancels any scheduled run and disables future Triggers.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	was := d.pending
	d.cancelLocked()
	d.stopped = true
	return was
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
