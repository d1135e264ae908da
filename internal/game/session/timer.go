package session

import (
	"sync"
	"time"
)

// deadlineTimer fires a callback once after a duration unless stopped first.
// Sessions use one for the lobby timeout and one per round; both are safe for
// concurrent use.
type deadlineTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// newDeadlineTimer creates and starts a timer that calls onFire after d.
// onFire runs on its own goroutine.
//
// Precondition: d > 0; onFire must not be nil.
func newDeadlineTimer(d time.Duration, onFire func()) *deadlineTimer {
	dt := &deadlineTimer{}
	dt.arm(d, onFire)
	return dt
}

func (dt *deadlineTimer) arm(d time.Duration, onFire func()) {
	dt.timer = time.AfterFunc(d, func() {
		dt.mu.Lock()
		stopped := dt.stopped
		dt.mu.Unlock()
		if !stopped {
			onFire()
		}
	})
}

// Reset cancels the pending fire and arms the timer again.
//
// Precondition: d > 0; onFire must not be nil.
func (dt *deadlineTimer) Reset(d time.Duration, onFire func()) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.stopped = false
	dt.timer.Stop()
	dt.arm(d, onFire)
}

// Stop prevents any future fire. Safe to call repeatedly.
//
// Postcondition: no new fire is scheduled. A callback already past its
// stopped check may still be running when Stop returns; timer consumers
// re-check session state and round, so a late fire is a no-op.
func (dt *deadlineTimer) Stop() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.stopped = true
	dt.timer.Stop()
}
