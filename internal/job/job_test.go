package job

import (
	"testing"

	"tickq/internal/sched"
)

func TestBlinker_TogglesOnPeriodAndCompletes(t *testing.T) {
	t.Parallel()

	c := sched.NewManualClock(0)
	s := sched.New(c)

	var levels []bool
	b := &Blinker{Period: 10, Toggles: 3, Out: func(on bool) { levels = append(levels, on) }}
	tk, err := sched.NewTask(b, nil)
	if err != nil {
		t.Fatalf("NewTask err=%v", err)
	}
	if err := s.ScheduleNow(tk); err != nil {
		t.Fatalf("ScheduleNow err=%v", err)
	}

	s.Step()
	if !tk.IsDeferred() || tk.Deadline() != 10 {
		t.Fatalf("after first toggle: state=%v deadline=%d", tk.State(), tk.Deadline())
	}
	c.Set(9)
	s.Step()
	if len(levels) != 1 {
		t.Fatalf("toggled early: %v", levels)
	}
	c.Set(10)
	s.Step()
	c.Set(20)
	s.Step()

	want := []bool{true, false, true}
	if len(levels) != len(want) {
		t.Fatalf("levels=%v, want %v", levels, want)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("levels=%v, want %v", levels, want)
		}
	}
	if !tk.IsIdle() || tk.LastOutcome() != sched.Done || !b.On() {
		t.Fatalf("state=%v last=%v on=%v", tk.State(), tk.LastOutcome(), b.On())
	}
}

func TestBlinker_JoinedBlinkersFireContinuationOnce(t *testing.T) {
	t.Parallel()

	c := sched.NewManualClock(0)
	s := sched.New(c)

	fast, err := sched.NewTask(&Blinker{Period: 5, Toggles: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	slow, err := sched.NewTask(&Blinker{Period: 20, Toggles: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	fired := 0
	cont, err := sched.NewTask(sched.Func(func(*sched.Scheduler, *sched.Task) sched.Outcome {
		fired++
		return sched.Done
	}), nil)
	if err != nil {
		t.Fatal(err)
	}

	j, err := sched.NewJoin(sched.All, cont, fast, slow)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Arm(s); err != nil {
		t.Fatal(err)
	}
	for now := sched.Tick(0); now <= 40; now++ {
		c.Set(now)
		s.Step()
	}
	if fired != 1 || j.TimedOut() {
		t.Fatalf("fired=%d TimedOut=%v, want 1 and false", fired, j.TimedOut())
	}
	if got := j.Completed(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("Completed=%v, want [0 1]", got)
	}
}

func TestSleepWork_CompletesAfterDelay(t *testing.T) {
	t.Parallel()

	c := sched.NewManualClock(100)
	s := sched.New(c)
	tk, err := sched.NewTask(SleepWork(15), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ScheduleNow(tk); err != nil {
		t.Fatal(err)
	}

	s.Step()
	if tk.LastOutcome() != sched.Continue || !tk.IsDeferred() || tk.Deadline() != 115 {
		t.Fatalf("last=%v state=%v deadline=%d", tk.LastOutcome(), tk.State(), tk.Deadline())
	}
	c.Set(114)
	s.Step()
	if tk.Runs() != 1 {
		t.Fatalf("runs=%d before deadline, want 1", tk.Runs())
	}
	c.Set(115)
	s.Step()
	if tk.LastOutcome() != sched.Done || !tk.IsIdle() {
		t.Fatalf("last=%v state=%v, want Done and Idle", tk.LastOutcome(), tk.State())
	}
}
