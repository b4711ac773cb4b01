package testutil

import (
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
	"github.com/akyairhashvil/timekeep/internal/util"
)

// TimerBuilder provides fluent API for creating test running timers.
type TimerBuilder struct {
	timer models.RunningTimer
}

func NewTimer(ownerID string, projectID int64, startedAt time.Time) *TimerBuilder {
	return &TimerBuilder{
		timer: models.RunningTimer{
			OwnerID:         ownerID,
			ProjectID:       projectID,
			StartedAt:       startedAt,
			LastHeartbeatAt: startedAt,
			Interrupt:       models.InterruptActive{},
			StartedFrom:     models.ClientCLI,
			Revision:        1,
		},
	}
}

func (b *TimerBuilder) WithEntryID(id int64) *TimerBuilder {
	b.timer.EntryID = id
	return b
}

func (b *TimerBuilder) WithOrganization(id string) *TimerBuilder {
	b.timer.OrganizationID = util.Ptr(id)
	return b
}

func (b *TimerBuilder) WithHeartbeat(at time.Time) *TimerBuilder {
	b.timer.LastHeartbeatAt = at
	return b
}

func (b *TimerBuilder) WithNextInterrupt(at time.Time) *TimerBuilder {
	b.timer.Interrupt = models.InterruptActive{NextAt: at}
	return b
}

func (b *TimerBuilder) AwaitingAck(shownAt time.Time, grace time.Duration) *TimerBuilder {
	b.timer.Interrupt = models.InterruptAwaitingAck{ShownAt: shownAt, Deadline: shownAt.Add(grace)}
	return b
}

// WithPomodoro starts a work phase at the timer's start.
func (b *TimerBuilder) WithPomodoro(workMinutes, breakMinutes int) *TimerBuilder {
	b.timer.Pomodoro = &models.PomodoroState{
		Phase:        models.PhaseWork,
		TransitionAt: b.timer.StartedAt.Add(time.Duration(workMinutes) * time.Minute),
		WorkMinutes:  workMinutes,
		BreakMinutes: breakMinutes,
		CurrentCycle: 1,
	}
	return b
}

func (b *TimerBuilder) InBreak(transitionAt time.Time) *TimerBuilder {
	if b.timer.Pomodoro != nil {
		b.timer.Pomodoro.Phase = models.PhaseBreak
		b.timer.Pomodoro.TransitionAt = transitionAt
	}
	return b
}

func (b *TimerBuilder) WithBudgetWarning(at time.Time) *TimerBuilder {
	b.timer.BudgetWarningSentAt = &at
	return b
}

func (b *TimerBuilder) Build() models.RunningTimer {
	return b.timer
}

// ProjectBuilder provides fluent API for creating test projects.
type ProjectBuilder struct {
	project models.Project
}

func NewProject(id int64) *ProjectBuilder {
	return &ProjectBuilder{project: models.Project{ID: id, Name: "Test Project"}}
}

func (b *ProjectBuilder) WithBudgetHours(h float64) *ProjectBuilder {
	b.project.BudgetHours = util.Ptr(h)
	return b
}

func (b *ProjectBuilder) WithBudgetAmount(amount, rate float64) *ProjectBuilder {
	b.project.BudgetAmount = util.Ptr(amount)
	b.project.HourlyRate = util.Ptr(rate)
	return b
}

func (b *ProjectBuilder) Build() models.Project {
	return b.project
}
