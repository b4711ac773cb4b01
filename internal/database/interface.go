package database

import (
	"context"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

// TimerRepository defines running-timer persistence. Every write is
// conditional on the revision the caller read.
type TimerRepository interface {
	GetRunningTimer(ctx context.Context, ownerID string) (models.RunningTimer, error)
	ListRunningTimers(ctx context.Context) ([]models.RunningTimer, error)
	CreateTimer(ctx context.Context, rt models.RunningTimer, entry models.TimeEntry) (models.RunningTimer, error)
	UpdateTimer(ctx context.Context, rt models.RunningTimer) (models.RunningTimer, error)
	FinalizeTimer(ctx context.Context, rt models.RunningTimer, seal Seal) (models.TimeEntry, error)
	RotateSegment(ctx context.Context, rt models.RunningTimer, seal Seal, next models.TimeEntry) (models.RunningTimer, models.TimeEntry, error)
}

// EntryRepository defines time-entry reads.
type EntryRepository interface {
	GetEntry(ctx context.Context, id int64) (models.TimeEntry, error)
	ListEntries(ctx context.Context, ownerID string, f EntryFilter) ([]models.TimeEntry, error)
	ListOverruns(ctx context.Context, ownerID string) ([]models.TimeEntry, error)
	ProjectTrackedSeconds(ctx context.Context, projectID int64, now time.Time) (int64, error)
}

// ProjectRepository defines budget reads and writes.
type ProjectRepository interface {
	GetProject(ctx context.Context, id int64) (models.Project, error)
	UpsertProject(ctx context.Context, p models.Project) (int64, error)
}

// SettingsRepository defines per-owner settings persistence.
type SettingsRepository interface {
	GetUserSettings(ctx context.Context, ownerID string) (models.UserSettings, bool, error)
	SaveUserSettings(ctx context.Context, s models.UserSettings) error
}

// Repository combines all repository interfaces.
type Repository interface {
	TimerRepository
	EntryRepository
	ProjectRepository
	SettingsRepository
}

var _ Repository = (*Database)(nil)
