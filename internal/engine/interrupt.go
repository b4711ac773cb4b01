package engine

import (
	"context"
	"errors"
	"time"

	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
)

// raiseInterrupt moves the timer from Active to AwaitingAck and arms the
// auto-stop at the end of the grace window.
func (e *Engine) raiseInterrupt(ctx context.Context, rt models.RunningTimer, s models.UserSettings, now time.Time) (models.RunningTimer, error) {
	if !s.InterruptEnabled {
		rt.Interrupt = models.InterruptActive{}
		updated, err := e.repo.UpdateTimer(ctx, rt)
		if err != nil {
			return models.RunningTimer{}, err
		}
		e.cancelJob(ctx, JobInterrupt, rt.OwnerID)
		return updated, nil
	}
	state := models.InterruptAwaitingAck{ShownAt: now, Deadline: now.Add(s.GracePeriod)}
	rt.Interrupt = state
	updated, err := e.repo.UpdateTimer(ctx, rt)
	if err != nil {
		return models.RunningTimer{}, err
	}
	e.schedule(ctx, JobAutoStop, rt.OwnerID, state.ShownAt, state.Deadline)
	e.logger.Info("interrupt shown", "owner", rt.OwnerID, "deadline", state.Deadline)
	e.publish(EventInterruptShown, rt.OwnerID, &updated, nil, now)
	return updated, nil
}

// AckInterrupt answers the pending prompt. With cont the timer keeps running
// and the next prompt is scheduled from now; otherwise the timer is
// finalized as an auto-stop. An ack with no prompt pending is ignored.
func (e *Engine) AckInterrupt(ctx context.Context, ownerID string, cont bool) error {
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
		if _, ok := live.AwaitingAck(); !ok {
			e.logger.Debug("ack without pending prompt ignored", "owner", ownerID)
			return nil
		}

		if !cont {
			_, err := e.finalize(ctx, *live, database.Seal{StoppedAt: now, Source: models.SourceAutoStop}, now)
			if errors.Is(err, database.ErrNotFound) {
				return timerNotFound(ownerID)
			}
			return err
		}

		s, err := e.settingsFor(ctx, ownerID)
		if err != nil {
			return err
		}
		live.Interrupt = nextInterrupt(s, now)
		live.LastHeartbeatAt = now
		updated, err := e.repo.UpdateTimer(ctx, *live)
		if err != nil {
			return err
		}
		e.cancelJob(ctx, JobAutoStop, ownerID)
		if next, ok := updated.NextInterruptAt(); ok {
			e.schedule(ctx, JobInterrupt, ownerID, next, next)
		}
		e.publish(EventInterruptAcked, ownerID, &updated, nil, now)
		return nil
	})
}
