// Package schedule owns the timing side of prediction: the debounce/
// single-flight state machine that decides when a backend request actually
// happens, and the bridge that feeds asynchronous completions back into the
// host event loop. All scheduler state is confined to the host-loop thread;
// there are no locks because there is no concurrent access by construction.
package schedule

import "time"

// Clock abstracts time so the state machine is testable with a simulated
// clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Timer is an armed one-shot timer handle.
type Timer interface {
	// Stop cancels the timer. Returns false if it already fired.
	Stop() bool
}

// Timers arms one-shot timers whose callbacks run on the host-loop thread.
// The debounce timer belongs to the host loop, not to the cooperative task
// side.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// HostTimers implements Timers on top of the runtime timer wheel, with each
// callback marshalled onto the host loop through the given post function.
type HostTimers struct {
	post func(func())
}

// NewHostTimers wires timers to a host loop's post function.
func NewHostTimers(post func(func())) *HostTimers {
	return &HostTimers{post: post}
}

// AfterFunc implements Timers.
func (t *HostTimers) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { t.post(fn) })
}
