package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
	"github.com/akyairhashvil/timekeep/internal/util"
)

type StopOptions struct {
	// Source overrides the sealed entry's source. Empty seals the open
	// segment as itself: timer for work, pomodoroBreak for a break.
	Source models.EntrySource
}

// StopResult is soft: Success is false when there was no timer to stop.
// When a due auto-stop or overrun resolved the timer first, Success stays
// false and the entry fields describe that seal.
type StopResult struct {
	Success bool
	EntryID int64
	Seconds int64
	Source  models.EntrySource
}

// Stop finalizes the owner's timer at now. Two devices stopping at once is
// expected; the loser gets Success false rather than an error.
func (e *Engine) Stop(ctx context.Context, ownerID string, opts StopOptions) (StopResult, error) {
	if opts.Source != "" && !opts.Source.Valid() {
		return StopResult{}, &ValidationError{Field: "source", Reason: fmt.Sprintf("unknown entry source %q", opts.Source)}
	}
	var res StopResult
	err := e.withOwner(ctx, ownerID, func() error {
		res = StopResult{}
		rt, err := e.loadTimer(ctx, ownerID)
		if err != nil || rt == nil {
			return err
		}
		if err := e.authorize(ctx, ownerID, rt.OrganizationID); err != nil {
			return err
		}
		now := e.now()
		live, resolved, err := e.checkpoint(ctx, *rt, now, true)
		if err != nil {
			return err
		}
		if live == nil {
			if resolved != nil {
				res = stopResult(false, *resolved)
			}
			return nil
		}
		source := opts.Source
		if source == "" {
			source = segmentSource(*live)
		}
		entry, err := e.finalize(ctx, *live, database.Seal{StoppedAt: now, Source: source}, now)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res = stopResult(true, entry)
		return nil
	})
	return res, err
}

func stopResult(success bool, entry models.TimeEntry) StopResult {
	return StopResult{
		Success: success,
		EntryID: entry.ID,
		Seconds: util.Deref(entry.Seconds),
		Source:  entry.Source,
	}
}

// finalize is the only path that seals the open entry and deletes the
// timer.
func (e *Engine) finalize(ctx context.Context, rt models.RunningTimer, seal database.Seal, now time.Time) (models.TimeEntry, error) {
	entry, err := e.repo.FinalizeTimer(ctx, rt, seal)
	if err != nil {
		return models.TimeEntry{}, err
	}
	e.cancelAllJobs(ctx, rt.OwnerID)
	seconds := int64(0)
	if entry.Seconds != nil {
		seconds = *entry.Seconds
	}
	e.logger.Info("timer finalized", "owner", rt.OwnerID, "entry", entry.ID, "seconds", seconds, "source", entry.Source, "overrun", entry.IsOverrun)
	e.publish(EventStopped, rt.OwnerID, nil, &entry, now)
	return entry, nil
}

// ListOverruns returns entries awaiting manual reconciliation.
func (e *Engine) ListOverruns(ctx context.Context, ownerID string) ([]models.TimeEntry, error) {
	if err := e.authorize(ctx, ownerID, nil); err != nil {
		return nil, err
	}
	return e.repo.ListOverruns(ctx, ownerID)
}

func (e *Engine) ListEntries(ctx context.Context, ownerID string, filter database.EntryFilter) ([]models.TimeEntry, error) {
	if err := e.authorize(ctx, ownerID, nil); err != nil {
		return nil, err
	}
	return e.repo.ListEntries(ctx, ownerID, filter)
}
