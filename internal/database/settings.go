package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

// GetUserSettings returns the stored settings for ownerID and whether a row
// existed.
func (d *Database) GetUserSettings(ctx context.Context, ownerID string) (models.UserSettings, bool, error) {
	var (
		s                        models.UserSettings
		enabled                  int
		intervalMs, graceMs      int64
		thresholdH, thresholdAmt sql.NullFloat64
	)
	err := d.DB.QueryRowContext(ctx, `
		SELECT owner_id, interrupt_enabled, interrupt_interval_ms, grace_period_ms,
			pomodoro_work_minutes, pomodoro_break_minutes,
			budget_warning_threshold_hours, budget_warning_threshold_amount
		FROM user_settings WHERE owner_id = ?`, ownerID).Scan(
		&s.OwnerID, &enabled, &intervalMs, &graceMs,
		&s.PomodoroWorkMinutes, &s.PomodoroBreakMinutes,
		&thresholdH, &thresholdAmt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserSettings{}, false, nil
	}
	if err != nil {
		return models.UserSettings{}, false, wrapErr(EntitySettings, "get", ownerID, err)
	}
	s.InterruptEnabled = enabled == 1
	s.InterruptInterval = time.Duration(intervalMs) * time.Millisecond
	s.GracePeriod = time.Duration(graceMs) * time.Millisecond
	s.BudgetWarningThresholdHours = float64PtrFromNull(thresholdH)
	s.BudgetWarningThresholdAmount = float64PtrFromNull(thresholdAmt)
	return s, true, nil
}

func (d *Database) SaveUserSettings(ctx context.Context, s models.UserSettings) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, interrupt_enabled, interrupt_interval_ms, grace_period_ms,
			pomodoro_work_minutes, pomodoro_break_minutes,
			budget_warning_threshold_hours, budget_warning_threshold_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			interrupt_enabled = excluded.interrupt_enabled,
			interrupt_interval_ms = excluded.interrupt_interval_ms,
			grace_period_ms = excluded.grace_period_ms,
			pomodoro_work_minutes = excluded.pomodoro_work_minutes,
			pomodoro_break_minutes = excluded.pomodoro_break_minutes,
			budget_warning_threshold_hours = excluded.budget_warning_threshold_hours,
			budget_warning_threshold_amount = excluded.budget_warning_threshold_amount`,
		s.OwnerID, boolToInt(s.InterruptEnabled), s.InterruptInterval.Milliseconds(), s.GracePeriod.Milliseconds(),
		s.PomodoroWorkMinutes, s.PomodoroBreakMinutes,
		toNullableArg(s.BudgetWarningThresholdHours), toNullableArg(s.BudgetWarningThresholdAmount))
	return wrapErr(EntitySettings, "save", s.OwnerID, err)
}
