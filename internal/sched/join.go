// internal/sched/join.go

package sched

import "fmt"

// MaxSubordinates is the largest number of tasks a single Join can wait on.
const MaxSubordinates = 16

// Policy decides when a Join fires.
type Policy uint8

const (
	// All fires once every subordinate has completed.
	All Policy = iota
	// Any fires on the first subordinate completion.
	Any
)

func (p Policy) String() string {
	if p == Any {
		return "any"
	}
	return "all"
}

// Join waits for subordinate tasks to complete and then schedules a continuation.
//
// A subordinate completes when one of its invocations returns Done. While armed, the
// join intercepts each subordinate's runner to observe this; the original runners are
// restored when the join fires, times out or is disarmed.
//
// A Join is single-shot: it fires exactly once per Arm, and completions reported after
// that are ignored. Any-joins do not cancel the losing subordinates; call Cancel on them
// if that is wanted.
//
// Like Task, a Join lives in caller-owned storage and must not be copied once armed.
type Join struct {
	policy  Policy
	name    string
	cont    *Task
	members [MaxSubordinates]member
	n       int

	remaining int
	order     [MaxSubordinates]int
	completed int

	armed    bool
	fired    bool
	timedOut bool
	timer    Task
}

type member struct {
	join  *Join
	index int
	task  *Task
	inner Runner
	done  bool
}

// Run forwards to the subordinate's own runner and reports completion to the join.
func (m *member) Run(s *Scheduler, t *Task) Outcome {
	out := m.inner.Run(s, t)
	if out == Done {
		m.join.complete(s, m)
	}
	return out
}

// NewJoin allocates a join; see Init.
func NewJoin(policy Policy, cont *Task, subs ...*Task) (*Join, error) {
	j := &Join{}
	if err := j.Init(policy, cont, subs...); err != nil {
		return nil, err
	}
	return j, nil
}

// InitAll prepares j to schedule cont once every task in subs has completed.
func (j *Join) InitAll(cont *Task, subs ...*Task) error {
	return j.Init(All, cont, subs...)
}

// InitAny prepares j to schedule cont as soon as the first task in subs completes.
func (j *Join) InitAny(cont *Task, subs ...*Task) error {
	return j.Init(Any, cont, subs...)
}

// Init prepares j. It must not be called while j is armed.
func (j *Join) Init(policy Policy, cont *Task, subs ...*Task) error {
	if j == nil {
		return fmt.Errorf("%w: nil join", ErrInvalidArgument)
	}
	if j.armed {
		return fmt.Errorf("%w: join is armed", ErrInvalidArgument)
	}
	if err := cont.valid(); err != nil {
		return fmt.Errorf("continuation: %w", err)
	}
	if len(subs) == 0 {
		return fmt.Errorf("%w: join needs at least one subordinate", ErrInvalidArgument)
	}
	if len(subs) > MaxSubordinates {
		return fmt.Errorf("%w: %d > %d", ErrTooManySubordinates, len(subs), MaxSubordinates)
	}
	for i, t := range subs {
		if err := t.valid(); err != nil {
			return fmt.Errorf("subordinate %d: %w", i, err)
		}
		if t == cont {
			return fmt.Errorf("%w: subordinate %d is the continuation", ErrInvalidArgument, i)
		}
		if inArmedJoin(t) {
			return fmt.Errorf("%w: subordinate %d belongs to an armed join", ErrInvalidArgument, i)
		}
		for _, u := range subs[:i] {
			if u == t {
				return fmt.Errorf("%w: subordinate %d listed twice", ErrInvalidArgument, i)
			}
		}
	}

	*j = Join{policy: policy, name: j.name, cont: cont, n: len(subs)}
	for i, t := range subs {
		j.members[i] = member{join: j, index: i, task: t}
	}
	_ = j.timer.Init(Func(j.expire), j)
	return nil
}

// SetName names the join in status events and logs.
func (j *Join) SetName(name string) *Join {
	j.name = name
	return j
}

// Arm starts the join without a timeout. It fails if a subordinate is still
// watched by another armed join.
func (j *Join) Arm(s *Scheduler) error {
	return j.arm(s, 0, false)
}

// ArmTimeout starts the join and schedules a timer d ticks from now. If the timer
// fires first, the continuation is scheduled with TimedOut reporting true.
func (j *Join) ArmTimeout(s *Scheduler, d Duration) error {
	return j.arm(s, d, true)
}

func (j *Join) arm(s *Scheduler, d Duration, withTimeout bool) error {
	if j.n == 0 {
		return fmt.Errorf("%w: join not initialised", ErrInvalidArgument)
	}
	if j.armed {
		return fmt.Errorf("%w: join already armed", ErrInvalidArgument)
	}
	// a task is watched by at most one join at a time
	for i := 0; i < j.n; i++ {
		if inArmedJoin(j.members[i].task) {
			return fmt.Errorf("%w: subordinate %d belongs to an armed join", ErrInvalidArgument, i)
		}
	}
	j.armed = true
	j.fired = false
	j.timedOut = false
	j.completed = 0
	j.remaining = j.n
	if j.policy == Any {
		j.remaining = 1
	}

	for i := 0; i < j.n; i++ {
		m := &j.members[i]
		m.done = false
		m.inner = m.task.runner
		m.task.runner = m
	}
	if withTimeout {
		j.timer.SetName(j.String() + ".timeout")
		if err := s.ScheduleAfter(&j.timer, d); err != nil {
			return err
		}
	}
	// subordinates the caller already scheduled keep their own deadlines. A running
	// subordinate (the one arming the join) is staged for the next Step.
	for i := 0; i < j.n; i++ {
		if t := j.members[i].task; t.IsIdle() || t.IsRunning() {
			if err := s.ScheduleNow(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Disarm stops the join without scheduling the continuation. Subordinates keep
// whatever scheduling state they have.
func (j *Join) Disarm(s *Scheduler) {
	if !j.armed || j.fired {
		return
	}
	j.teardown(s)
}

func (j *Join) complete(s *Scheduler, m *member) {
	if j.fired || m.done {
		return
	}
	m.done = true
	j.order[j.completed] = m.index
	j.completed++
	j.remaining--
	if j.remaining > 0 {
		return
	}
	j.fire(s, false)
}

func (j *Join) expire(s *Scheduler, _ *Task) Outcome {
	if j.armed && !j.fired {
		j.fire(s, true)
	}
	return Done
}

func (j *Join) fire(s *Scheduler, timedOut bool) {
	j.fired = true
	j.timedOut = timedOut
	j.teardown(s)

	kind := StatusJoinFire
	if timedOut {
		kind = StatusJoinTimeout
	}
	s.publish(StatusEvent{Tick: s.now, Kind: kind, Task: j.String(), Outcome: Done})
	s.logger.Debug("join fired", "join", j.name, "policy", j.policy, "timed_out", timedOut, "completed", j.completed)
	_ = s.ScheduleNow(j.cont)
}

func (j *Join) teardown(s *Scheduler) {
	j.armed = false
	_ = s.Cancel(&j.timer)
	for i := 0; i < j.n; i++ {
		m := &j.members[i]
		if m.task.runner == Runner(m) {
			m.task.runner = m.inner
		}
	}
}

func inArmedJoin(t *Task) bool {
	m, ok := t.runner.(*member)
	return ok && m.join.armed
}

func (j *Join) String() string {
	if j.name != "" {
		return j.name
	}
	return fmt.Sprintf("join@%p", j)
}

// Policy returns the completion policy.
func (j *Join) Policy() Policy { return j.policy }

// Armed reports whether the join is waiting for completions.
func (j *Join) Armed() bool { return j.armed }

// Fired reports whether the continuation has been scheduled since the last Arm.
func (j *Join) Fired() bool { return j.fired }

// TimedOut reports whether the join fired because its timer expired.
func (j *Join) TimedOut() bool { return j.timedOut }

// Remaining is the number of completions still needed before the join fires.
func (j *Join) Remaining() int { return j.remaining }

// Completed returns the indices of the subordinates that completed before the join
// fired, in completion order.
func (j *Join) Completed() []int {
	return append([]int(nil), j.order[:j.completed]...)
}

// Len is the number of subordinates.
func (j *Join) Len() int { return j.n }
