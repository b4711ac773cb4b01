package config

import (
	"fmt"

	"github.com/akyairhashvil/timekeep/internal/models"
)

// ValidationError reports a setting outside its allowed bounds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateSettings checks interrupt and pomodoro settings. The interrupt
// interval is only checked when interrupts are enabled.
func ValidateSettings(s models.UserSettings) error {
	if s.InterruptEnabled {
		if s.InterruptInterval < MinInterruptInterval || s.InterruptInterval > MaxInterruptInterval {
			return &ValidationError{
				Field:  "interrupt_interval",
				Reason: fmt.Sprintf("%s not within %s..%s", s.InterruptInterval, MinInterruptInterval, MaxInterruptInterval),
			}
		}
	}
	if s.GracePeriod < MinGracePeriod || s.GracePeriod > MaxGracePeriod {
		return &ValidationError{
			Field:  "grace_period",
			Reason: fmt.Sprintf("%s not within %s..%s", s.GracePeriod, MinGracePeriod, MaxGracePeriod),
		}
	}
	if err := ValidatePomodoro(models.PomodoroConfig{WorkMinutes: s.PomodoroWorkMinutes, BreakMinutes: s.PomodoroBreakMinutes}); err != nil {
		return err
	}
	if s.BudgetWarningThresholdHours != nil && *s.BudgetWarningThresholdHours < 0 {
		return &ValidationError{Field: "budget_warning_threshold_hours", Reason: "must not be negative"}
	}
	if s.BudgetWarningThresholdAmount != nil && *s.BudgetWarningThresholdAmount < 0 {
		return &ValidationError{Field: "budget_warning_threshold_amount", Reason: "must not be negative"}
	}
	return nil
}

func ValidatePomodoro(p models.PomodoroConfig) error {
	if p.WorkMinutes < MinPomodoroWorkMinutes || p.WorkMinutes > MaxPomodoroWorkMinutes {
		return &ValidationError{
			Field:  "pomodoro_work_minutes",
			Reason: fmt.Sprintf("%d not within %d..%d", p.WorkMinutes, MinPomodoroWorkMinutes, MaxPomodoroWorkMinutes),
		}
	}
	if p.BreakMinutes < MinPomodoroBreakMinutes || p.BreakMinutes > MaxPomodoroBreakMinutes {
		return &ValidationError{
			Field:  "pomodoro_break_minutes",
			Reason: fmt.Sprintf("%d not within %d..%d", p.BreakMinutes, MinPomodoroBreakMinutes, MaxPomodoroBreakMinutes),
		}
	}
	return nil
}
