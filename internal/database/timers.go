package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

const timerColumns = `owner_id, organization_id, project_id, category_id, entry_id, started_at, last_heartbeat_at,
	awaiting_ack, interrupt_shown_at, interrupt_deadline, next_interrupt_at,
	pomodoro_enabled, pomodoro_phase, pomodoro_transition_at, pomodoro_work_minutes, pomodoro_break_minutes,
	pomodoro_current_cycle, pomodoro_completed_cycles, budget_warning_sent_at, started_from, revision`

// Seal describes how an open entry is closed.
type Seal struct {
	StoppedAt time.Time
	Source    models.EntrySource
	IsOverrun bool
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimer(row rowScanner) (models.RunningTimer, error) {
	var (
		rt                                          models.RunningTimer
		orgID, phase, startedFrom                   sql.NullString
		categoryID                                  sql.NullInt64
		startedAt, heartbeatAt                      int64
		awaiting, pomodoroEnabled                   int
		shownAt, deadline, nextAt, transitionAt     sql.NullInt64
		workMin, breakMin, currentCycle, doneCycles sql.NullInt64
		warnedAt                                    sql.NullInt64
	)
	if err := row.Scan(
		&rt.OwnerID, &orgID, &rt.ProjectID, &categoryID, &rt.EntryID, &startedAt, &heartbeatAt,
		&awaiting, &shownAt, &deadline, &nextAt,
		&pomodoroEnabled, &phase, &transitionAt, &workMin, &breakMin,
		&currentCycle, &doneCycles, &warnedAt, &startedFrom, &rt.Revision,
	); err != nil {
		return models.RunningTimer{}, err
	}
	rt.OrganizationID = stringPtrFromNull(orgID)
	rt.CategoryID = int64PtrFromNull(categoryID)
	rt.StartedAt = fromMillis(startedAt)
	rt.LastHeartbeatAt = fromMillis(heartbeatAt)
	if awaiting == 1 {
		rt.Interrupt = models.InterruptAwaitingAck{ShownAt: timeFromNull(shownAt), Deadline: timeFromNull(deadline)}
	} else {
		rt.Interrupt = models.InterruptActive{NextAt: timeFromNull(nextAt)}
	}
	if pomodoroEnabled == 1 {
		rt.Pomodoro = &models.PomodoroState{
			Phase:           models.PomodoroPhase(phase.String),
			TransitionAt:    timeFromNull(transitionAt),
			WorkMinutes:     int(workMin.Int64),
			BreakMinutes:    int(breakMin.Int64),
			CurrentCycle:    int(currentCycle.Int64),
			CompletedCycles: int(doneCycles.Int64),
		}
	}
	rt.BudgetWarningSentAt = timePtrFromNull(warnedAt)
	rt.StartedFrom = models.ClientKind(startedFrom.String)
	return rt, nil
}

// timerArgs flattens the tagged interrupt and pomodoro state into columns,
// in timerColumns order minus owner_id and revision.
func timerArgs(rt models.RunningTimer) []interface{} {
	var (
		awaiting                 int
		shownAt, deadline, next  sql.NullInt64
		pomodoroEnabled          int
		phase                    sql.NullString
		transitionAt             sql.NullInt64
		workMin, breakMin        sql.NullInt64
		currentCycle, doneCycles sql.NullInt64
	)
	switch s := rt.Interrupt.(type) {
	case models.InterruptAwaitingAck:
		awaiting = 1
		shownAt = nullableMillis(s.ShownAt)
		deadline = nullableMillis(s.Deadline)
	case models.InterruptActive:
		next = nullableMillis(s.NextAt)
	}
	if p := rt.Pomodoro; p != nil {
		pomodoroEnabled = 1
		phase = nullableString(string(p.Phase))
		transitionAt = nullableMillis(p.TransitionAt)
		workMin = sql.NullInt64{Int64: int64(p.WorkMinutes), Valid: true}
		breakMin = sql.NullInt64{Int64: int64(p.BreakMinutes), Valid: true}
		currentCycle = sql.NullInt64{Int64: int64(p.CurrentCycle), Valid: true}
		doneCycles = sql.NullInt64{Int64: int64(p.CompletedCycles), Valid: true}
	}
	return []interface{}{
		toNullableArg(rt.OrganizationID), rt.ProjectID, toNullableArg(rt.CategoryID), rt.EntryID,
		toMillis(rt.StartedAt), toMillis(rt.LastHeartbeatAt),
		awaiting, shownAt, deadline, next,
		pomodoroEnabled, phase, transitionAt, workMin, breakMin, currentCycle, doneCycles,
		nullableMillisPtr(rt.BudgetWarningSentAt), nullableString(string(rt.StartedFrom)),
	}
}

func (d *Database) GetRunningTimer(ctx context.Context, ownerID string) (models.RunningTimer, error) {
	row := d.DB.QueryRowContext(ctx, "SELECT "+timerColumns+" FROM running_timers WHERE owner_id = ?", ownerID)
	rt, err := scanTimer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunningTimer{}, wrapErr(EntityTimer, "get", ownerID, ErrNotFound)
	}
	if err != nil {
		return models.RunningTimer{}, wrapErr(EntityTimer, "get", ownerID, err)
	}
	return rt, nil
}

// ListRunningTimers returns every running timer, used to re-arm jobs after a
// restart.
func (d *Database) ListRunningTimers(ctx context.Context) ([]models.RunningTimer, error) {
	rows, err := d.DB.QueryContext(ctx, "SELECT "+timerColumns+" FROM running_timers ORDER BY owner_id ASC")
	if err != nil {
		return nil, wrapErr(EntityTimer, "list", "", err)
	}
	defer rows.Close()
	var out []models.RunningTimer
	for rows.Next() {
		rt, err := scanTimer(rows)
		if err != nil {
			return nil, wrapErr(EntityTimer, "list", "", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(EntityTimer, "list", "", err)
	}
	return out, nil
}

// CreateTimer inserts the open entry and the running timer atomically. It
// fails with ErrConflict when the owner already has a running timer.
func (d *Database) CreateTimer(ctx context.Context, rt models.RunningTimer, entry models.TimeEntry) (models.RunningTimer, error) {
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM running_timers WHERE owner_id = ?", rt.OwnerID).Scan(&exists)
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		entryID, err := insertEntryTx(ctx, tx, entry)
		if err != nil {
			return err
		}
		rt.EntryID = entryID
		rt.Revision = 1
		args := append([]interface{}{rt.OwnerID}, timerArgs(rt)...)
		args = append(args, rt.Revision)
		_, err = tx.ExecContext(ctx, "INSERT INTO running_timers ("+timerColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
		return err
	})
	if err != nil {
		if isConstraintErr(err) {
			err = ErrConflict
		}
		return models.RunningTimer{}, wrapErr(EntityTimer, "create", rt.OwnerID, err)
	}
	return rt, nil
}

// UpdateTimer writes rt if the stored revision still equals rt.Revision and
// returns the row with its revision advanced.
func (d *Database) UpdateTimer(ctx context.Context, rt models.RunningTimer) (models.RunningTimer, error) {
	var next models.RunningTimer
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		next, err = updateTimerTx(ctx, tx, rt)
		return err
	})
	if err != nil {
		return models.RunningTimer{}, wrapErr(EntityTimer, "update", rt.OwnerID, err)
	}
	return next, nil
}

func updateTimerTx(ctx context.Context, tx *sql.Tx, rt models.RunningTimer) (models.RunningTimer, error) {
	args := timerArgs(rt)
	args = append(args, rt.OwnerID, rt.Revision)
	res, err := tx.ExecContext(ctx, `
		UPDATE running_timers SET
			organization_id = ?, project_id = ?, category_id = ?, entry_id = ?, started_at = ?, last_heartbeat_at = ?,
			awaiting_ack = ?, interrupt_shown_at = ?, interrupt_deadline = ?, next_interrupt_at = ?,
			pomodoro_enabled = ?, pomodoro_phase = ?, pomodoro_transition_at = ?, pomodoro_work_minutes = ?,
			pomodoro_break_minutes = ?, pomodoro_current_cycle = ?, pomodoro_completed_cycles = ?,
			budget_warning_sent_at = ?, started_from = ?, revision = revision + 1
		WHERE owner_id = ? AND revision = ?`, args...)
	if err != nil {
		return models.RunningTimer{}, err
	}
	if err := revisionMatched(ctx, tx, res, rt.OwnerID); err != nil {
		return models.RunningTimer{}, err
	}
	rt.Revision++
	return rt, nil
}

// revisionMatched distinguishes a vanished timer from a concurrent write.
func revisionMatched(ctx context.Context, tx *sql.Tx, res sql.Result, ownerID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM running_timers WHERE owner_id = ?", ownerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStaleRevision
}

// FinalizeTimer seals the timer's open entry and deletes the timer in one
// transaction, provided the stored revision still equals rt.Revision.
func (d *Database) FinalizeTimer(ctx context.Context, rt models.RunningTimer, seal Seal) (models.TimeEntry, error) {
	var sealed models.TimeEntry
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM running_timers WHERE owner_id = ? AND revision = ?", rt.OwnerID, rt.Revision)
		if err != nil {
			return err
		}
		if err := revisionMatched(ctx, tx, res, rt.OwnerID); err != nil {
			return err
		}
		sealed, err = sealEntryTx(ctx, tx, rt.EntryID, seal)
		return err
	})
	if err != nil {
		return models.TimeEntry{}, wrapErr(EntityTimer, "finalize", rt.OwnerID, err)
	}
	return sealed, nil
}

// RotateSegment seals the current open entry, opens next and points the
// timer at it. rt carries the post-transition timer state and the revision
// it was read at.
func (d *Database) RotateSegment(ctx context.Context, rt models.RunningTimer, seal Seal, next models.TimeEntry) (models.RunningTimer, models.TimeEntry, error) {
	var (
		updated models.RunningTimer
		sealed  models.TimeEntry
	)
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		var current int64
		var revision int64
		err := tx.QueryRowContext(ctx, "SELECT entry_id, revision FROM running_timers WHERE owner_id = ?", rt.OwnerID).Scan(&current, &revision)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if revision != rt.Revision {
			return ErrStaleRevision
		}
		sealed, err = sealEntryTx(ctx, tx, current, seal)
		if err != nil {
			return err
		}
		entryID, err := insertEntryTx(ctx, tx, next)
		if err != nil {
			return err
		}
		rt.EntryID = entryID
		updated, err = updateTimerTx(ctx, tx, rt)
		return err
	})
	if err != nil {
		return models.RunningTimer{}, models.TimeEntry{}, wrapErr(EntityTimer, "rotate segment", rt.OwnerID, err)
	}
	return updated, sealed, nil
}

// TimerCount returns the number of running timers for ownerID; used by
// invariant checks.
func (d *Database) TimerCount(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := d.DB.QueryRowContext(ctx, "SELECT COUNT(1) FROM running_timers WHERE owner_id = ?", ownerID).Scan(&n); err != nil {
		return 0, wrapErr(EntityTimer, "count", ownerID, err)
	}
	return n, nil
}
