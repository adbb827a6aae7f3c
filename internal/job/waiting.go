package job

import "tickq/internal/sched"

// SleepWork returns a runner that waits d ticks and then completes.
// The first invocation defers the task; the one after the deadline reports Done.
// It can be reused: after completing, the next invocation starts a new wait.
func SleepWork(d sched.Duration) sched.Runner {
	waiting := false
	return sched.Func(func(s *sched.Scheduler, t *sched.Task) sched.Outcome {
		if !waiting {
			waiting = true
			if err := s.ScheduleAfter(t, d); err != nil {
				waiting = false
				return sched.Done
			}
			return sched.Continue
		}
		waiting = false
		return sched.Done
	})
}
