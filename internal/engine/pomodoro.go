package engine

import (
	"context"
	"time"

	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
)

// advancePhases rotates through every pomodoro boundary at or before until
// and arms the job for the next one. Boundaries past the stale cutoff are
// left alone: that span belongs to the overrun the reaper seals.
func (e *Engine) advancePhases(ctx context.Context, rt models.RunningTimer, until time.Time) (models.RunningTimer, error) {
	rotated := false
	for rt.Pomodoro != nil && !rt.Pomodoro.TransitionAt.After(until) {
		if e.staleAt(rt, rt.Pomodoro.TransitionAt) {
			e.logger.Debug("pomodoro paused on stale timer", "owner", rt.OwnerID, "boundary", rt.Pomodoro.TransitionAt, "last_heartbeat", rt.LastHeartbeatAt)
			break
		}
		next, err := e.rotatePhase(ctx, rt)
		if err != nil {
			return models.RunningTimer{}, err
		}
		rt = next
		rotated = true
	}
	if rotated {
		e.schedule(ctx, JobPomodoro, rt.OwnerID, rt.Pomodoro.TransitionAt, rt.Pomodoro.TransitionAt)
	}
	return rt, nil
}

// rotatePhase seals the current segment at the phase boundary and opens the
// next one. The running timer itself survives.
func (e *Engine) rotatePhase(ctx context.Context, rt models.RunningTimer) (models.RunningTimer, error) {
	p := *rt.Pomodoro
	boundary := p.TransitionAt
	sealSource, nextSource := models.SourceTimer, models.SourcePomodoroBreak
	if p.Phase == models.PhaseWork {
		p.Phase = models.PhaseBreak
	} else {
		sealSource, nextSource = models.SourcePomodoroBreak, models.SourceTimer
		p.Phase = models.PhaseWork
		p.CompletedCycles++
		p.CurrentCycle++
	}
	p.TransitionAt = boundary.Add(p.PhaseDuration(p.Phase))
	rt.Pomodoro = &p

	next := models.TimeEntry{
		OwnerID:    rt.OwnerID,
		ProjectID:  rt.ProjectID,
		CategoryID: rt.CategoryID,
		StartedAt:  boundary,
		Source:     nextSource,
	}
	updated, sealed, err := e.repo.RotateSegment(ctx, rt, database.Seal{StoppedAt: boundary, Source: sealSource}, next)
	if err != nil {
		return models.RunningTimer{}, err
	}
	e.logger.Info("pomodoro phase changed", "owner", rt.OwnerID, "phase", p.Phase, "cycle", p.CurrentCycle, "sealed", sealed.ID)
	e.publish(EventPhaseChanged, rt.OwnerID, &updated, &sealed, boundary)
	return updated, nil
}

// staleAt reports whether no heartbeat covers at.
func (e *Engine) staleAt(rt models.RunningTimer, at time.Time) bool {
	return at.Sub(rt.LastHeartbeatAt) > e.staleTime
}

// segmentSource is the source an explicit stop seals the open segment with.
func segmentSource(rt models.RunningTimer) models.EntrySource {
	if rt.Pomodoro != nil && rt.Pomodoro.Phase == models.PhaseBreak {
		return models.SourcePomodoroBreak
	}
	return models.SourceTimer
}
