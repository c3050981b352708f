package reader

import (
	"sync"
	"time"
)

// Debouncer is a single-slot deferred-task scheduler. Arming it replaces
// whatever task is pending and restarts the delay; when the delay passes
// uninterrupted the task fires once and the slot empties. Only the last
// task armed within a window ever runs, which is what coalesces a burst
// of position-change events into one store write.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer creates a debouncer with the given idle delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Arm schedules task to run after the delay, replacing any pending task
// and restarting the countdown.
func (d *Debouncer) Arm(task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = task
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire consumes the slot and runs the task outside the lock.
func (d *Debouncer) fire() {
	d.mu.Lock()
	task := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if task != nil {
		task()
	}
}

// Cancel drops the pending task without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Pending reports whether a task is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
