// internal/sched/schedulerEvent.go

package sched

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusEnqueue StatusKind = iota
	StatusDefer
	StatusPromote
	StatusDispatch
	StatusFinish
	StatusCancel
	StatusJoinFire
	StatusJoinTimeout
)

// StatusEvent is emitted synchronously on every state change of a task or join.
// Observers run on the stepping goroutine and must not block.
type StatusEvent struct {
	Tick     Tick
	Kind     StatusKind
	Task     string
	Deadline Tick
	Runs     uint64
	Outcome  Outcome
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusEnqueue:
		return "Enqueued"
	case StatusDefer:
		return "Deferred"
	case StatusPromote:
		return "Promote"
	case StatusDispatch:
		return "Dispatch"
	case StatusFinish:
		return "Finish"
	case StatusCancel:
		return "Cancel"
	case StatusJoinFire:
		return "JoinFire"
	case StatusJoinTimeout:
		return "JoinTimeout"
	default:
		return "Unknown"
	}
}
