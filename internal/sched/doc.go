// Package sched is a single-threaded cooperative task scheduler for tick-driven,
// interrupt-style programs, plus join combinators built on top of it.
//
// A Task binds a Runner to caller-owned context. The Scheduler keeps runnable tasks in
// FIFO order and deferred tasks ordered by deadline, and Step runs one bounded pass:
//
//	s := sched.New(clock)
//	var blink sched.Task
//	_ = blink.Init(&job.Blinker{Period: 100}, nil)
//	_ = s.ScheduleNow(&blink)
//	for {
//		next, ok := s.Step()
//		// sleep until next (or until an interrupt) when ok, otherwise until an event
//	}
//
// Anything scheduled while a Step is running is only seen by the following Step, so a
// task graph can never cascade synchronously inside one call.
//
// Tick values wrap around at 2^32; all comparisons go through Tick.Before and friends.
//
// Join waits for All or Any of up to MaxSubordinates tasks, optionally bounded by a
// timeout, and then schedules a continuation task exactly once.
package sched
