package job

import "tickq/internal/sched"

// Blinker toggles an output every Period ticks.
//
// With Toggles > 0 it completes after that many toggles and leaves the output where
// it ended up; with Toggles == 0 it blinks until cancelled.
type Blinker struct {
	Period  sched.Duration
	Toggles int
	Out     func(on bool)

	on bool
	n  int
}

// Run implements sched.Runner.
func (b *Blinker) Run(s *sched.Scheduler, t *sched.Task) sched.Outcome {
	b.on = !b.on
	b.n++
	if b.Out != nil {
		b.Out(b.on)
	}
	if b.Toggles > 0 && b.n >= b.Toggles {
		b.n = 0
		return sched.Done
	}
	if err := s.ScheduleNext(t, b.Period); err != nil {
		return sched.Done
	}
	return sched.Continue
}

// On reports the current output level.
func (b *Blinker) On() bool { return b.on }

// Count is the number of toggles in the current run.
func (b *Blinker) Count() int { return b.n }
