// Package deferred provides a cancellable deferred action driven by a Clock, so
// timer-based behaviour (scan buffer expiry, search debounce) can be tested by
// advancing a virtual clock.
package deferred

import (
	"sync"
	"time"
)

// Clock is the time source used by Deferred.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Deferred runs action once the window elapses without being re-armed or cancelled.
type Deferred struct {
	mu     sync.Mutex
	clock  Clock
	window time.Duration
	action func()
	timer  Timer
	gen    uint64
}

// New creates an unarmed Deferred.
func New(clock Clock, window time.Duration, action func()) *Deferred {
	if clock == nil {
		clock = Real()
	}
	return &Deferred{clock: clock, window: window, action: action}
}

// Arm starts the window, restarting it if already pending.
func (d *Deferred) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
}

// Cancel stops a pending window. It reports whether one was pending.
func (d *Deferred) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether the action is armed and has not fired yet.
func (d *Deferred) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Deferred) fire(gen uint64) {
	d.mu.Lock()
	// a Stop that lost the race with the wall clock bumps gen first
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.action()
}
