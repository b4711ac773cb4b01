package engine

import (
	"context"
	"errors"

	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
	"github.com/akyairhashvil/timekeep/internal/scheduler"
)

func (e *Engine) handleInterruptJob(ctx context.Context, job scheduler.Job) error {
	return e.runJob(ctx, job, func(rt models.RunningTimer) bool {
		next, ok := rt.NextInterruptAt()
		return ok && next.UnixMilli() == job.Version
	})
}

func (e *Engine) handleAutoStopJob(ctx context.Context, job scheduler.Job) error {
	return e.runJob(ctx, job, func(rt models.RunningTimer) bool {
		st, ok := rt.AwaitingAck()
		return ok && st.ShownAt.UnixMilli() == job.Version
	})
}

func (e *Engine) handlePomodoroJob(ctx context.Context, job scheduler.Job) error {
	return e.runJob(ctx, job, func(rt models.RunningTimer) bool {
		return rt.Pomodoro != nil && rt.Pomodoro.TransitionAt.UnixMilli() == job.Version
	})
}

// runJob re-reads the timer and proceeds only if the field the job was
// stamped against is unchanged. Anything else is a stale delivery and is
// dropped. Jobs never reap stale heartbeats.
func (e *Engine) runJob(ctx context.Context, job scheduler.Job, matches func(models.RunningTimer) bool) error {
	err := e.withOwner(ctx, job.OwnerID, func() error {
		rt, err := e.loadTimer(ctx, job.OwnerID)
		if err != nil {
			return err
		}
		if rt == nil || !matches(*rt) {
			e.logger.Debug("stale job discarded", "kind", job.Kind, "owner", job.OwnerID, "id", job.ID, "version", job.Version)
			return nil
		}
		at := e.now()
		if at.Before(job.FireAt) {
			at = job.FireAt
		}
		_, _, err = e.checkpoint(ctx, *rt, at, false)
		return err
	})
	if errors.Is(err, database.ErrNotFound) {
		e.logger.Debug("timer vanished during job", "kind", job.Kind, "owner", job.OwnerID)
		return nil
	}
	return err
}
