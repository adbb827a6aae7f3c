// internal/sched/tick.go

package sched

import "sync/atomic"

// Tick is one reading of the monotonic tick counter. It wraps around at 2^32.
type Tick uint32

// Duration is a tick delta.
type Duration uint32

// Add returns t advanced by d, wrapping modulo 2^32.
func (t Tick) Add(d Duration) Tick {
	return t + Tick(d)
}

// Sub returns the signed distance from u to t.
// The result is only meaningful when the two readings are less than half a period apart.
func (t Tick) Sub(u Tick) int32 {
	return int32(t - u)
}

// Before reports whether t comes before u, taking wraparound into account.
func (t Tick) Before(u Tick) bool {
	return t.Sub(u) < 0
}

// AtOrAfter reports whether t is u or later, taking wraparound into account.
func (t Tick) AtOrAfter(u Tick) bool {
	return !t.Before(u)
}

// Until returns how many ticks remain from now to deadline; zero once the deadline is due.
func Until(now, deadline Tick) Duration {
	if !now.Before(deadline) {
		return 0
	}
	return Duration(deadline - now)
}

// Clock is the monotonic tick source supplied by the platform port.
// It must never go backward except through wraparound.
type Clock interface {
	Now() Tick
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() Tick

func (f ClockFunc) Now() Tick { return f() }

// ManualClock is a Clock advanced explicitly. Tests and simulations drive it.
type ManualClock struct {
	now atomic.Uint32
}

// NewManualClock returns a clock reading start.
func NewManualClock(start Tick) *ManualClock {
	c := &ManualClock{}
	c.now.Store(uint32(start))
	return c
}

func (c *ManualClock) Now() Tick { return Tick(c.now.Load()) }

// Set moves the clock to t. Callers must not move it backward.
func (c *ManualClock) Set(t Tick) { c.now.Store(uint32(t)) }

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d Duration) Tick {
	return Tick(c.now.Add(uint32(d)))
}
