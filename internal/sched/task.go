package sched

import "fmt"

// State is the scheduling state of a Task.
type State uint8

const (
	StateIdle     State = iota // not scheduled
	StateRunnable              // runs on the next Step
	StateDeferred              // waits for its deadline
	StateRunning               // currently executing
)

func (st State) String() string {
	switch st {
	case StateIdle:
		return "Idle"
	case StateRunnable:
		return "Runnable"
	case StateDeferred:
		return "Deferred"
	case StateRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// Outcome is what a runner reports back after one invocation.
type Outcome uint8

const (
	// Continue means the logical activity is not finished yet; the runner has either
	// rescheduled itself or waits to be scheduled by an external event.
	Continue Outcome = iota
	// Done means the logical activity completed. Joins count this as completion.
	Done
)

func (o Outcome) String() string {
	if o == Done {
		return "Done"
	}
	return "Continue"
}

// Runner is the work bound to a task. Run must not block; waiting is expressed by
// rescheduling t on s and returning.
type Runner interface {
	Run(s *Scheduler, t *Task) Outcome
}

// Func adapts a plain function to Runner.
type Func func(s *Scheduler, t *Task) Outcome

func (f Func) Run(s *Scheduler, t *Task) Outcome { return f(s, t) }

// Task represents one schedulable unit of cooperative work.
//
// Task records are owned by the caller. A Scheduler only links them into its pending
// sets and never copies them, so a Task must not be copied or discarded while pending.
// Identity is the record address: two tasks with the same runner are distinct.
type Task struct {
	name     string
	runner   Runner
	ctx      any
	state    State
	deadline Tick

	// intrusive FIFO links, valid while state == StateRunnable
	next, prev *Task
	list       *taskList

	// tree key, valid while state == StateDeferred
	key deferKey

	runs uint64
	last Outcome
}

// NewTask allocates and initialises a task. Firmware-style callers that own static
// storage use Init instead.
func NewTask(r Runner, ctx any) (*Task, error) {
	t := &Task{}
	if err := t.Init(r, ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Init binds r and ctx to the task and leaves it idle.
// It must not be called while the task is pending.
func (t *Task) Init(r Runner, ctx any) error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidArgument)
	}
	if r == nil {
		return fmt.Errorf("%w: nil runner", ErrInvalidArgument)
	}
	*t = Task{name: t.name, runner: r, ctx: ctx}
	return nil
}

// Call invokes the runner immediately, bypassing the pending sets.
// The state is left alone unless the runner reschedules the task itself.
func (t *Task) Call(s *Scheduler) Outcome {
	return t.runner.Run(s, t)
}

// SetName attaches a name used in status events and logs.
func (t *Task) SetName(name string) *Task {
	t.name = name
	return t
}

func (t *Task) Name() string     { return t.name }
func (t *Task) Context() any     { return t.ctx }
func (t *Task) State() State     { return t.state }
func (t *Task) IsIdle() bool     { return t.state == StateIdle }
func (t *Task) IsRunnable() bool { return t.state == StateRunnable }
func (t *Task) IsDeferred() bool { return t.state == StateDeferred }
func (t *Task) IsRunning() bool  { return t.state == StateRunning }

// Deadline is the tick the task is (or was last) due at. It is only meaningful while deferred.
func (t *Task) Deadline() Tick { return t.deadline }

// Runs is how many times the scheduler has dispatched the task.
func (t *Task) Runs() uint64 { return t.runs }

// LastOutcome is the outcome of the most recent dispatch.
func (t *Task) LastOutcome() Outcome { return t.last }

func (t *Task) String() string {
	if t.name != "" {
		return t.name
	}
	return fmt.Sprintf("task@%p", t)
}

func (t *Task) valid() error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidArgument)
	}
	if t.runner == nil {
		return fmt.Errorf("%w: task %s has no runner", ErrInvalidArgument, t)
	}
	return nil
}

// taskList is an intrusive FIFO of runnable tasks.
type taskList struct {
	head, tail *Task
	n          int
}

func (l *taskList) pushBack(t *Task) {
	t.list = l
	t.next = nil
	t.prev = l.tail
	if l.tail != nil {
		l.tail.next = t
	} else {
		l.head = t
	}
	l.tail = t
	l.n++
}

func (l *taskList) remove(t *Task) {
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		l.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.next, t.prev, t.list = nil, nil, nil
	l.n--
}

func (l *taskList) popFront() *Task {
	t := l.head
	if t != nil {
		l.remove(t)
	}
	return t
}

// prepend moves every task of other in front of l, keeping their order.
func (l *taskList) prepend(other *taskList) {
	for t := other.tail; t != nil; t = other.tail {
		other.remove(t)
		t.list = l
		t.prev = nil
		t.next = l.head
		if l.head != nil {
			l.head.prev = t
		} else {
			l.tail = t
		}
		l.head = t
		l.n++
	}
}
