package models

import "time"

// EntrySource records which code path sealed a TimeEntry.
type EntrySource string

const (
	SourceManual        EntrySource = "manual"
	SourceTimer         EntrySource = "timer"
	SourceAutoStop      EntrySource = "autoStop"
	SourceOverrun       EntrySource = "overrun"
	SourcePomodoroBreak EntrySource = "pomodoroBreak"
)

// Valid reports whether s is a known source.
func (s EntrySource) Valid() bool {
	switch s {
	case SourceManual, SourceTimer, SourceAutoStop, SourceOverrun, SourcePomodoroBreak:
		return true
	}
	return false
}

// PomodoroPhase is the Work or Break sub-state of a pomodoro session.
type PomodoroPhase string

const (
	PhaseWork  PomodoroPhase = "work"
	PhaseBreak PomodoroPhase = "break"
)

// ClientKind is informational only.
type ClientKind string

const (
	ClientWeb    ClientKind = "web"
	ClientMobile ClientKind = "mobile"
	ClientCLI    ClientKind = "cli"
)

// InterruptState is either InterruptActive or InterruptAwaitingAck.
type InterruptState interface {
	interruptState()
}

// InterruptActive means no prompt is pending. A zero NextAt means interrupts
// are disabled for this timer.
type InterruptActive struct {
	NextAt time.Time
}

// InterruptAwaitingAck means the "still working?" prompt is shown and the
// grace window closes at Deadline.
type InterruptAwaitingAck struct {
	ShownAt  time.Time
	Deadline time.Time
}

func (InterruptActive) interruptState()      {}
func (InterruptAwaitingAck) interruptState() {}

// PomodoroConfig is the work/break snapshot captured at start.
type PomodoroConfig struct {
	WorkMinutes  int
	BreakMinutes int
}

// PomodoroState tracks phase alternation on a running timer.
type PomodoroState struct {
	Phase           PomodoroPhase
	TransitionAt    time.Time
	WorkMinutes     int
	BreakMinutes    int
	CurrentCycle    int
	CompletedCycles int
}

// PhaseDuration returns the configured length of phase p.
func (p PomodoroState) PhaseDuration(phase PomodoroPhase) time.Duration {
	if phase == PhaseBreak {
		return time.Duration(p.BreakMinutes) * time.Minute
	}
	return time.Duration(p.WorkMinutes) * time.Minute
}

// RunningTimer is the single active session for an owner.
type RunningTimer struct {
	OwnerID             string
	OrganizationID      *string // nil for the personal workspace
	ProjectID           int64
	CategoryID          *int64
	EntryID             int64 // the open TimeEntry
	StartedAt           time.Time
	LastHeartbeatAt     time.Time
	Interrupt           InterruptState
	Pomodoro            *PomodoroState // nil when pomodoro is disabled
	BudgetWarningSentAt *time.Time
	StartedFrom         ClientKind
	Revision            int64
}

// AwaitingAck reports whether the interrupt prompt is pending.
func (t RunningTimer) AwaitingAck() (InterruptAwaitingAck, bool) {
	s, ok := t.Interrupt.(InterruptAwaitingAck)
	return s, ok
}

// NextInterruptAt returns the next scheduled prompt, if any.
func (t RunningTimer) NextInterruptAt() (time.Time, bool) {
	s, ok := t.Interrupt.(InterruptActive)
	if !ok || s.NextAt.IsZero() {
		return time.Time{}, false
	}
	return s.NextAt, true
}

// TimeEntry is a sealed or currently open record of tracked time.
type TimeEntry struct {
	ID         int64
	OwnerID    string
	ProjectID  int64
	CategoryID *int64
	StartedAt  time.Time
	StoppedAt  *time.Time
	Seconds    *int64 // set only when StoppedAt is set
	Source     EntrySource
	IsOverrun  bool
}

// Open reports whether the entry has not been sealed.
func (e TimeEntry) Open() bool {
	return e.StoppedAt == nil
}

// Project carries the budget data read by the budget monitor.
type Project struct {
	ID           int64
	Name         string
	BudgetHours  *float64
	BudgetAmount *float64
	HourlyRate   *float64
}

// UserSettings are read-only to the timer engine.
type UserSettings struct {
	OwnerID                      string
	InterruptEnabled             bool
	InterruptInterval            time.Duration
	GracePeriod                  time.Duration
	PomodoroWorkMinutes          int
	PomodoroBreakMinutes         int
	BudgetWarningThresholdHours  *float64
	BudgetWarningThresholdAmount *float64
}
