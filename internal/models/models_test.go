package models

import (
	"testing"
	"time"
)

func TestEntrySourceConstants(t *testing.T) {
	if SourceTimer != "timer" {
		t.Fatalf("SourceTimer = %q", SourceTimer)
	}
	if SourceAutoStop != "autoStop" {
		t.Fatalf("SourceAutoStop = %q", SourceAutoStop)
	}
	if SourcePomodoroBreak != "pomodoroBreak" {
		t.Fatalf("SourcePomodoroBreak = %q", SourcePomodoroBreak)
	}
	if EntrySource("bogus").Valid() {
		t.Fatalf("unexpected valid source")
	}
	if !SourceOverrun.Valid() {
		t.Fatalf("overrun should be valid")
	}
}

func TestRunningTimerInterruptAccessors(t *testing.T) {
	next := time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC)
	rt := RunningTimer{Interrupt: InterruptActive{NextAt: next}}
	if got, ok := rt.NextInterruptAt(); !ok || !got.Equal(next) {
		t.Fatalf("NextInterruptAt = %v, %v", got, ok)
	}
	if _, ok := rt.AwaitingAck(); ok {
		t.Fatalf("active timer should not await ack")
	}

	rt.Interrupt = InterruptActive{}
	if _, ok := rt.NextInterruptAt(); ok {
		t.Fatalf("disabled interrupts should have no next time")
	}

	rt.Interrupt = InterruptAwaitingAck{ShownAt: next, Deadline: next.Add(time.Minute)}
	s, ok := rt.AwaitingAck()
	if !ok || !s.Deadline.Equal(next.Add(time.Minute)) {
		t.Fatalf("AwaitingAck = %+v, %v", s, ok)
	}
}

func TestTimeEntryZeroValues(t *testing.T) {
	var e TimeEntry
	if !e.Open() {
		t.Fatalf("zero entry should be open")
	}
	if e.Seconds != nil || e.CategoryID != nil {
		t.Fatalf("expected nil pointer fields by default")
	}
}

func TestPomodoroPhaseDuration(t *testing.T) {
	p := PomodoroState{WorkMinutes: 25, BreakMinutes: 5}
	if p.PhaseDuration(PhaseWork) != 25*time.Minute {
		t.Fatalf("work duration = %v", p.PhaseDuration(PhaseWork))
	}
	if p.PhaseDuration(PhaseBreak) != 5*time.Minute {
		t.Fatalf("break duration = %v", p.PhaseDuration(PhaseBreak))
	}
}
