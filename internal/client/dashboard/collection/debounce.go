package collection

import (
	"sync"
	"time"
)

// Debouncer runs only the most recently triggered function, once its delay
// has passed without a newer trigger.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Trigger cancels any pending run and schedules fn after delay.
// A non-positive delay runs fn synchronously.
func (d *Debouncer) Trigger(delay time.Duration, fn func()) {
	d.mu.Lock()
	d.stopLocked()
	if delay <= 0 {
		d.mu.Unlock()
		fn()
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		// A Cancel or Trigger may have raced the timer firing.
		stale := gen != d.gen
		if !stale {
			d.timer = nil
		}
		d.mu.Unlock()
		if !stale {
			fn()
		}
	})
	d.mu.Unlock()
}

// Cancel drops any pending run.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.stopLocked()
	d.mu.Unlock()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
