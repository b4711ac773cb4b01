package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
)

type StartRequest struct {
	OrganizationID *string
	ProjectID      int64
	CategoryID     *int64
	// Pomodoro enables work/break sequencing. Zero minutes fall back to the
	// owner's settings.
	Pomodoro    *models.PomodoroConfig
	StartedFrom models.ClientKind
}

// TimerView is the read-only projection handed to UI collaborators.
type TimerView struct {
	models.RunningTimer
	ElapsedSeconds int64
	At             time.Time
}

func newTimerView(rt models.RunningTimer, now time.Time) *TimerView {
	elapsed := int64(0)
	if now.After(rt.StartedAt) {
		elapsed = int64(now.Sub(rt.StartedAt) / time.Second)
	}
	return &TimerView{RunningTimer: rt, ElapsedSeconds: elapsed, At: now}
}

// Start opens a timer and its first time entry. A stale or expired timer
// left over from an earlier session is finalized first.
func (e *Engine) Start(ctx context.Context, ownerID string, req StartRequest) (models.RunningTimer, error) {
	if strings.TrimSpace(ownerID) == "" {
		return models.RunningTimer{}, &ValidationError{Field: "owner", Reason: "is required"}
	}
	if req.ProjectID <= 0 {
		return models.RunningTimer{}, &ValidationError{Field: "project", Reason: "is required"}
	}
	if err := e.authorize(ctx, ownerID, req.OrganizationID); err != nil {
		return models.RunningTimer{}, err
	}

	var out models.RunningTimer
	err := e.withOwner(ctx, ownerID, func() error {
		now := e.now()
		existing, err := e.loadTimer(ctx, ownerID)
		if err != nil {
			return err
		}
		if existing != nil {
			live, _, err := e.checkpoint(ctx, *existing, now, true)
			if err != nil {
				return err
			}
			if live != nil {
				return conflictTimer(ownerID)
			}
		}

		s, err := e.settingsFor(ctx, ownerID)
		if err != nil {
			return err
		}
		pomo, err := newPomodoroState(req.Pomodoro, s, now)
		if err != nil {
			return err
		}
		rt := models.RunningTimer{
			OwnerID:         ownerID,
			OrganizationID:  req.OrganizationID,
			ProjectID:       req.ProjectID,
			CategoryID:      req.CategoryID,
			StartedAt:       now,
			LastHeartbeatAt: now,
			Interrupt:       nextInterrupt(s, now),
			Pomodoro:        pomo,
			StartedFrom:     req.StartedFrom,
		}
		entry := models.TimeEntry{
			OwnerID:    ownerID,
			ProjectID:  req.ProjectID,
			CategoryID: req.CategoryID,
			StartedAt:  now,
			Source:     models.SourceTimer,
		}
		created, err := e.repo.CreateTimer(ctx, rt, entry)
		if errors.Is(err, database.ErrConflict) {
			return conflictTimer(ownerID)
		}
		if err != nil {
			return err
		}
		e.armJobs(ctx, created)
		e.logger.Info("timer started", "owner", ownerID, "project", req.ProjectID, "entry", created.EntryID, "pomodoro", pomo != nil)
		e.publish(EventStarted, ownerID, &created, nil, now)

		created, err = e.checkBudget(ctx, created, s, now)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	return out, err
}

// Heartbeat records client liveness. It is also a checkpoint: overdue
// transitions are applied first, and a stale timer is finalized as overrun.
func (e *Engine) Heartbeat(ctx context.Context, ownerID string) error {
	return e.withOwner(ctx, ownerID, func() error {
		rt, err := e.loadTimer(ctx, ownerID)
		if err != nil {
			return err
		}
		if rt == nil {
			return timerNotFound(ownerID)
		}
		if err := e.authorize(ctx, ownerID, rt.OrganizationID); err != nil {
			return err
		}
		now := e.now()
		live, _, err := e.checkpoint(ctx, *rt, now, true)
		if err != nil {
			return err
		}
		if live == nil {
			return timerNotFound(ownerID)
		}
		live.LastHeartbeatAt = now
		updated, err := e.repo.UpdateTimer(ctx, *live)
		if err != nil {
			return err
		}
		e.publish(EventHeartbeat, ownerID, &updated, nil, now)
		return nil
	})
}

// GetRunning returns the owner's timer, or nil when none is running.
func (e *Engine) GetRunning(ctx context.Context, ownerID string) (*TimerView, error) {
	var view *TimerView
	err := e.withOwner(ctx, ownerID, func() error {
		view = nil
		rt, err := e.loadTimer(ctx, ownerID)
		if err != nil || rt == nil {
			return err
		}
		if err := e.authorize(ctx, ownerID, rt.OrganizationID); err != nil {
			return err
		}
		now := e.now()
		live, _, err := e.checkpoint(ctx, *rt, now, true)
		if err != nil || live == nil {
			return err
		}
		view = newTimerView(*live, now)
		return nil
	})
	return view, err
}

func nextInterrupt(s models.UserSettings, now time.Time) models.InterruptState {
	if !s.InterruptEnabled || s.InterruptInterval <= 0 {
		return models.InterruptActive{}
	}
	return models.InterruptActive{NextAt: now.Add(s.InterruptInterval)}
}

func newPomodoroState(cfg *models.PomodoroConfig, s models.UserSettings, now time.Time) (*models.PomodoroState, error) {
	if cfg == nil {
		return nil, nil
	}
	c := *cfg
	if c.WorkMinutes == 0 {
		c.WorkMinutes = s.PomodoroWorkMinutes
	}
	if c.BreakMinutes == 0 {
		c.BreakMinutes = s.PomodoroBreakMinutes
	}
	if err := config.ValidatePomodoro(c); err != nil {
		return nil, err
	}
	p := &models.PomodoroState{
		Phase:        models.PhaseWork,
		WorkMinutes:  c.WorkMinutes,
		BreakMinutes: c.BreakMinutes,
		CurrentCycle: 1,
	}
	p.TransitionAt = now.Add(p.PhaseDuration(models.PhaseWork))
	return p, nil
}
