// internal/sched/tickclock.go

package sched

import (
	"sync/atomic"
	"time"
)

// TickClock counts wall-clock ticks atomically and signals every tick on Ch.
// It is the host-side stand-in for a hardware timer.
type TickClock struct {
	Ch    chan struct{}
	count atomic.Uint32
	stop  chan struct{}
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins counting ticks at the given interval.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				// NOTE: a slow consumer loses wakeups, never ticks; Now stays exact.
				select {
				case c.Ch <- struct{}{}:
				default:
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop counting. Ch is closed once the ticker goroutine exits.
func (c *TickClock) Stop() {
	close(c.stop)
}

// Now returns the current tick count.
func (c *TickClock) Now() Tick {
	return Tick(c.count.Load())
}
