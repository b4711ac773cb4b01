package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

const entryColumns = `id, owner_id, project_id, category_id, started_at, stopped_at, seconds, source, is_overrun`

func scanEntry(row rowScanner) (models.TimeEntry, error) {
	var (
		e                  models.TimeEntry
		categoryID         sql.NullInt64
		startedAt          int64
		stoppedAt, seconds sql.NullInt64
		source             string
		overrun            int
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.ProjectID, &categoryID, &startedAt, &stoppedAt, &seconds, &source, &overrun); err != nil {
		return models.TimeEntry{}, err
	}
	e.CategoryID = int64PtrFromNull(categoryID)
	e.StartedAt = fromMillis(startedAt)
	e.StoppedAt = timePtrFromNull(stoppedAt)
	e.Seconds = int64PtrFromNull(seconds)
	e.Source = models.EntrySource(source)
	e.IsOverrun = overrun == 1
	return e, nil
}

func insertEntryTx(ctx context.Context, tx *sql.Tx, e models.TimeEntry) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO time_entries (owner_id, project_id, category_id, started_at, source, is_overrun) VALUES (?, ?, ?, ?, ?, 0)",
		e.OwnerID, e.ProjectID, toNullableArg(e.CategoryID), toMillis(e.StartedAt), string(e.Source))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// sealEntryTx closes an open entry. Seconds are derived from the stored
// millisecond stamps; an already sealed entry yields ErrNotFound.
func sealEntryTx(ctx context.Context, tx *sql.Tx, entryID int64, seal Seal) (models.TimeEntry, error) {
	var startedMs int64
	err := tx.QueryRowContext(ctx, "SELECT started_at FROM time_entries WHERE id = ? AND stopped_at IS NULL", entryID).Scan(&startedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, ErrNotFound
	}
	if err != nil {
		return models.TimeEntry{}, err
	}
	stoppedMs := toMillis(seal.StoppedAt)
	if stoppedMs < startedMs {
		stoppedMs = startedMs
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE time_entries SET stopped_at = ?, seconds = ?, source = ?, is_overrun = ? WHERE id = ? AND stopped_at IS NULL",
		stoppedMs, elapsedSeconds(startedMs, stoppedMs), string(seal.Source), boolToInt(seal.IsOverrun), entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	return scanEntry(tx.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM time_entries WHERE id = ?", entryID))
}

func (d *Database) GetEntry(ctx context.Context, id int64) (models.TimeEntry, error) {
	e, err := scanEntry(d.DB.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM time_entries WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, wrapErr(EntityEntry, "get", strconv.FormatInt(id, 10), ErrNotFound)
	}
	if err != nil {
		return models.TimeEntry{}, wrapErr(EntityEntry, "get", strconv.FormatInt(id, 10), err)
	}
	return e, nil
}

// EntryFilter narrows ListEntries. Zero values mean no constraint.
type EntryFilter struct {
	ProjectID    int64
	Since        time.Time
	OnlyOverrun  bool
	IncludeOpen  bool
	ExcludeBreak bool
}

func (d *Database) ListEntries(ctx context.Context, ownerID string, f EntryFilter) ([]models.TimeEntry, error) {
	q := NewEntryQuery().WhereOwner(ownerID)
	if f.ProjectID > 0 {
		q.Where("project_id = ?", f.ProjectID)
	}
	if !f.Since.IsZero() {
		q.Where("started_at >= ?", toMillis(f.Since))
	}
	if f.OnlyOverrun {
		q.Where("is_overrun = 1")
	}
	if !f.IncludeOpen {
		q.Where("stopped_at IS NOT NULL")
	}
	if f.ExcludeBreak {
		q.Where("source != ?", string(models.SourcePomodoroBreak))
	}
	query, args := q.OrderBy("started_at ASC, id ASC").Build()
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(EntityEntry, "list", ownerID, err)
	}
	defer rows.Close()
	var out []models.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrapErr(EntityEntry, "list", ownerID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(EntityEntry, "list", ownerID, err)
	}
	return out, nil
}

// ListOverruns returns entries flagged for manual reconciliation.
func (d *Database) ListOverruns(ctx context.Context, ownerID string) ([]models.TimeEntry, error) {
	return d.ListEntries(ctx, ownerID, EntryFilter{OnlyOverrun: true})
}

// ProjectTrackedSeconds sums billable time for a project across owners as of
// now: sealed entries plus the live part of open ones. Overrun entries and
// pomodoro break segments are excluded.
func (d *Database) ProjectTrackedSeconds(ctx context.Context, projectID int64, now time.Time) (int64, error) {
	var total int64
	err := d.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN stopped_at IS NOT NULL THEN seconds
			WHEN ? > started_at THEN (? - started_at) / 1000
			ELSE 0 END), 0)
		FROM time_entries
		WHERE project_id = ? AND is_overrun = 0 AND source != ?`,
		toMillis(now), toMillis(now), projectID, string(models.SourcePomodoroBreak)).Scan(&total)
	if err != nil {
		return 0, wrapErr(EntityEntry, "sum", strconv.FormatInt(projectID, 10), err)
	}
	return total, nil
}
