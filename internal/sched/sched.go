// Package sched provides the delayed-callback abstraction used by the tour,
// chat and speech layers. Production code uses the wall clock; tests drive a
// manual scheduler so tour timing can be stepped deterministically.
package sched

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Real schedules callbacks on the runtime timer heap.
type Real struct{}

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Now returns the current wall-clock time.
func (Real) Now() time.Time {
	return time.Now()
}
