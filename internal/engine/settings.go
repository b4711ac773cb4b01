package engine

import (
	"context"

	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/models"
)

// Settings returns the owner's stored settings, or the configured defaults.
func (e *Engine) Settings(ctx context.Context, ownerID string) (models.UserSettings, error) {
	if err := e.authorize(ctx, ownerID, nil); err != nil {
		return models.UserSettings{}, err
	}
	return e.settingsFor(ctx, ownerID)
}

// UpdateSettings validates and stores s. A running pomodoro keeps the
// durations it was started with.
func (e *Engine) UpdateSettings(ctx context.Context, s models.UserSettings) error {
	if err := e.authorize(ctx, s.OwnerID, nil); err != nil {
		return err
	}
	if err := config.ValidateSettings(s); err != nil {
		return err
	}
	return e.repo.SaveUserSettings(ctx, s)
}

// SaveProject stores a project's budget data.
func (e *Engine) SaveProject(ctx context.Context, p models.Project) (int64, error) {
	if p.Name == "" {
		return 0, &ValidationError{Field: "project name", Reason: "is required"}
	}
	for field, v := range map[string]*float64{"budget hours": p.BudgetHours, "budget amount": p.BudgetAmount, "hourly rate": p.HourlyRate} {
		if v != nil && *v < 0 {
			return 0, &ValidationError{Field: field, Reason: "must not be negative"}
		}
	}
	return e.repo.UpsertProject(ctx, p)
}
