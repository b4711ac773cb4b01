package engine

import (
	"context"
	"time"

	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
)

// checkpoint applies every transition that is due at now, in this order:
// an expired grace window auto-stops at its deadline; a stale heartbeat
// finalizes as overrun (only when reap is set and no prompt is pending);
// overdue pomodoro phases rotate at their exact boundaries up to the stale
// cutoff; an overdue
// prompt is raised; the budget is checked.
//
// It returns the live timer, or nil plus the sealed entry when the timer was
// finalized.
func (e *Engine) checkpoint(ctx context.Context, rt models.RunningTimer, now time.Time, reap bool) (*models.RunningTimer, *models.TimeEntry, error) {
	if st, ok := rt.AwaitingAck(); ok {
		if !now.Before(st.Deadline) {
			rt, err := e.advancePhases(ctx, rt, st.Deadline)
			if err != nil {
				return nil, nil, err
			}
			entry, err := e.finalize(ctx, rt, database.Seal{StoppedAt: st.Deadline, Source: models.SourceAutoStop}, now)
			if err != nil {
				return nil, nil, err
			}
			return nil, &entry, nil
		}
	} else if reap && e.staleAt(rt, now) {
		e.logger.Warn("stale timer finalized as overrun", "owner", rt.OwnerID, "last_heartbeat", rt.LastHeartbeatAt)
		entry, err := e.finalize(ctx, rt, database.Seal{StoppedAt: now, Source: models.SourceOverrun, IsOverrun: true}, now)
		if err != nil {
			return nil, nil, err
		}
		return nil, &entry, nil
	}

	s, err := e.settingsFor(ctx, rt.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	rt, err = e.advancePhases(ctx, rt, now)
	if err != nil {
		return nil, nil, err
	}
	if next, ok := rt.NextInterruptAt(); ok && !now.Before(next) {
		rt, err = e.raiseInterrupt(ctx, rt, s, now)
		if err != nil {
			return nil, nil, err
		}
	}
	rt, err = e.checkBudget(ctx, rt, s, now)
	if err != nil {
		return nil, nil, err
	}
	return &rt, nil, nil
}
