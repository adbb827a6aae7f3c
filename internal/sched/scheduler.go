// internal/sched/scheduler.go

package sched

import (
	"context"
	"io"
	"log/slog"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// Scheduler runs tasks cooperatively on a single goroutine.
//
// Pending tasks live in two places: an intrusive FIFO of runnable tasks and a
// red-black tree of deferred tasks ordered by deadline, then by insertion order.
// Scheduler is not safe for concurrent use; a caller that schedules from another
// goroutine or an interrupt handler must provide its own mutual exclusion.
type Scheduler struct {
	clock Clock

	// ready[cur] collects runnable tasks for the next Step; ready[cur^1] is the
	// batch being drained by the current Step.
	ready    [2]taskList
	cur      int
	deferred *redblacktree.Tree
	seq      uint64

	// now is the last clock reading and epoch its widened 64-bit value, so tree
	// keys stay totally ordered across counter wraparound.
	now   Tick
	epoch uint64

	stepping bool
	observer func(StatusEvent)
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers fn to receive every status event.
func WithObserver(fn func(StatusEvent)) Option {
	return func(s *Scheduler) { s.observer = fn }
}

// WithLogger makes the scheduler log state changes at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l.With("component", "sched")
		}
	}
}

// New creates an empty scheduler reading time from clock.
func New(clock Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    clock,
		deferred: redblacktree.NewWith(cmpDeferKey),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.now = clock.Now()
	s.epoch = 1 << 32
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now reads the clock.
func (s *Scheduler) Now() Tick {
	return s.refresh()
}

// ScheduleNow makes t runnable on the next Step.
// It is a no-op for a task that is already runnable; a deferred task is moved.
func (s *Scheduler) ScheduleNow(t *Task) error {
	if err := t.valid(); err != nil {
		return err
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)

	switch t.state {
	case StateRunnable:
		return nil
	case StateDeferred:
		s.deferred.Remove(t.key)
	}
	t.state = StateRunnable
	t.deadline = s.refresh()
	s.ready[s.cur].pushBack(t)
	s.emit(StatusEnqueue, t)
	return nil
}

// ScheduleAt defers t until deadline. A task that is already pending is moved,
// never duplicated. A deadline at or before now makes t due on the next Step.
func (s *Scheduler) ScheduleAt(t *Task, deadline Tick) error {
	if err := t.valid(); err != nil {
		return err
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.refresh()
	s.unlink(t)
	s.seq++
	t.state = StateDeferred
	t.deadline = deadline
	t.key = deferKey{at: s.widen(deadline), seq: s.seq}
	s.deferred.Put(t.key, t)
	s.emit(StatusDefer, t)
	return nil
}

// ScheduleAfter defers t for d ticks from the current clock reading. Delays of 2^31
// ticks or more wrap into the past and make t due on the next Step.
func (s *Scheduler) ScheduleAfter(t *Task, d Duration) error {
	if err := t.valid(); err != nil {
		return err
	}
	return s.ScheduleAt(t, s.refresh().Add(d))
}

// ScheduleNext defers t one period after its previous deadline, which keeps periodic
// tasks free of drift. If that tick has already passed, it never catches up with a
// burst of runs; the next deadline is one period from now instead.
func (s *Scheduler) ScheduleNext(t *Task, period Duration) error {
	if err := t.valid(); err != nil {
		return err
	}
	now := s.refresh()
	next := t.deadline.Add(period)
	if next.Before(now) {
		next = now.Add(period)
	}
	return s.ScheduleAt(t, next)
}

// Cancel removes t from whichever pending set holds it and leaves it idle.
// Cancelling a running task means it will not be requeued when it returns.
func (s *Scheduler) Cancel(t *Task) error {
	if t == nil {
		return t.valid()
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.state == StateIdle {
		return nil
	}
	s.unlink(t)
	t.state = StateIdle
	s.emit(StatusCancel, t)
	return nil
}

// Step runs one bounded pass: it promotes every deferred task that is due, then
// invokes each task that was runnable at that point exactly once. Tasks scheduled by
// those invocations are left for the next Step.
//
// Step returns the tick at which it should be called again: now if tasks are already
// runnable, otherwise the earliest deadline. ok is false when nothing is pending.
// A Step called from inside a running task does nothing.
func (s *Scheduler) Step() (next Tick, ok bool) {
	if s.stepping {
		return s.nextWake()
	}
	now := s.refresh()

	state := disableInterrupts()
	for node := s.deferred.Left(); node != nil; node = s.deferred.Left() {
		key := node.Key.(deferKey)
		if key.at > s.epoch {
			break
		}
		t := node.Value.(*Task)
		s.deferred.Remove(key)
		t.state = StateRunnable
		s.ready[s.cur].pushBack(t)
		s.emit(StatusPromote, t)
	}
	batch := &s.ready[s.cur]
	s.cur ^= 1
	restoreInterrupts(state)

	var running *Task
	s.stepping = true
	defer func() {
		s.stepping = false
		// only reached with work left over if a runner panicked; keep the rest first in line
		if running != nil && running.state == StateRunning {
			running.state = StateIdle
		}
		if batch.n > 0 {
			s.ready[s.cur].prepend(batch)
		}
	}()

	for {
		state := disableInterrupts()
		t := batch.popFront()
		if t != nil {
			t.state = StateRunning
		}
		restoreInterrupts(state)
		if t == nil {
			break
		}

		running = t
		s.emit(StatusDispatch, t)
		out := t.runner.Run(s, t)
		t.runs++
		t.last = out
		if t.state == StateRunning {
			t.state = StateIdle
		}
		running = nil
		s.emit(StatusFinish, t)
	}

	s.logger.Debug("step", "tick", now, "ready", s.ready[s.cur].n, "deferred", s.deferred.Size())
	return s.nextWake()
}

// Run steps until ctx is cancelled or wake is closed. Between steps it waits on
// wake and only steps again once a task is runnable or the next deadline is due.
func (s *Scheduler) Run(ctx context.Context, wake <-chan struct{}) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, ok := s.Step()
		if s.ready[s.cur].n > 0 {
			continue
		}
	wait:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, open := <-wake:
				if !open {
					return nil
				}
			}
			if !ok || s.ready[s.cur].n > 0 || s.clock.Now().AtOrAfter(next) {
				break wait
			}
		}
	}
}

// Next returns the earliest deadline in the deferred set.
func (s *Scheduler) Next() (Tick, bool) {
	node := s.deferred.Left()
	if node == nil {
		return 0, false
	}
	return node.Value.(*Task).deadline, true
}

// Pending counts the runnable and deferred tasks.
func (s *Scheduler) Pending() int {
	return s.ready[0].n + s.ready[1].n + s.deferred.Size()
}

// Reset unlinks every pending task and leaves it idle.
func (s *Scheduler) Reset() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range s.ready {
		for t := s.ready[i].popFront(); t != nil; t = s.ready[i].popFront() {
			t.state = StateIdle
		}
	}
	for _, v := range s.deferred.Values() {
		v.(*Task).state = StateIdle
	}
	s.deferred.Clear()
}

func (s *Scheduler) nextWake() (Tick, bool) {
	if s.ready[s.cur].n > 0 {
		return s.now, true
	}
	return s.Next()
}

// unlink removes t from its pending set without touching its state.
func (s *Scheduler) unlink(t *Task) {
	switch t.state {
	case StateRunnable:
		t.list.remove(t)
	case StateDeferred:
		s.deferred.Remove(t.key)
	}
}

// refresh advances now and epoch. Reads 2^31 or more ticks apart look like the
// clock ran backwards and leave both unchanged.
func (s *Scheduler) refresh() Tick {
	now := s.clock.Now()
	if d := now.Sub(s.now); d > 0 {
		s.epoch += uint64(d)
		s.now = now
	}
	return s.now
}

func (s *Scheduler) widen(t Tick) uint64 {
	return s.epoch + uint64(int64(t.Sub(s.now)))
}

func (s *Scheduler) emit(kind StatusKind, t *Task) {
	if s.observer == nil {
		return
	}
	s.observer(StatusEvent{
		Tick:     s.now,
		Kind:     kind,
		Task:     t.String(),
		Deadline: t.deadline,
		Runs:     t.runs,
		Outcome:  t.last,
	})
}

func (s *Scheduler) publish(ev StatusEvent) {
	if s.observer != nil {
		s.observer(ev)
	}
}

// deferKey is used as a key in the red-black tree.
type deferKey struct {
	at  uint64
	seq uint64
}

// cmpDeferKey orders deferred tasks by widened deadline, then by insertion order.
func cmpDeferKey(a, b any) int {
	ka, kb := a.(deferKey), b.(deferKey)
	switch {
	case ka.at < kb.at:
		return -1
	case ka.at > kb.at:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}
