package engine

import (
	"context"
	"errors"
	"time"

	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
)

type budgetStatus struct {
	below           bool
	remainingHours  *float64
	remainingAmount *float64
}

// evaluateBudget compares what is left of the project's budget against the
// owner's thresholds. Either dimension at or under its threshold counts.
func evaluateBudget(p models.Project, s models.UserSettings, trackedSeconds int64) budgetStatus {
	var st budgetStatus
	hours := float64(trackedSeconds) / 3600
	if p.BudgetHours != nil {
		remaining := *p.BudgetHours - hours
		st.remainingHours = &remaining
		if s.BudgetWarningThresholdHours != nil && remaining <= *s.BudgetWarningThresholdHours {
			st.below = true
		}
	}
	if p.BudgetAmount != nil && p.HourlyRate != nil {
		remaining := *p.BudgetAmount - hours**p.HourlyRate
		st.remainingAmount = &remaining
		if s.BudgetWarningThresholdAmount != nil && remaining <= *s.BudgetWarningThresholdAmount {
			st.below = true
		}
	}
	return st
}

// checkBudget latches budgetWarningSentAt and signals the notifier once per
// breach. The latch clears when the remaining budget rises above threshold.
func (e *Engine) checkBudget(ctx context.Context, rt models.RunningTimer, s models.UserSettings, now time.Time) (models.RunningTimer, error) {
	if rt.BudgetWarningSentAt == nil && s.BudgetWarningThresholdHours == nil && s.BudgetWarningThresholdAmount == nil {
		return rt, nil
	}
	project, err := e.repo.GetProject(ctx, rt.ProjectID)
	if errors.Is(err, database.ErrNotFound) {
		return rt, nil
	}
	if err != nil {
		return models.RunningTimer{}, err
	}
	tracked, err := e.repo.ProjectTrackedSeconds(ctx, rt.ProjectID, now)
	if err != nil {
		return models.RunningTimer{}, err
	}
	st := evaluateBudget(project, s, tracked)

	switch {
	case st.below && rt.BudgetWarningSentAt == nil:
		at := now
		rt.BudgetWarningSentAt = &at
		updated, err := e.repo.UpdateTimer(ctx, rt)
		if err != nil {
			return models.RunningTimer{}, err
		}
		e.logger.Info("budget threshold crossed", "owner", rt.OwnerID, "project", rt.ProjectID, "tracked_seconds", tracked)
		if e.notifier != nil {
			signal := BudgetSignal{
				OwnerID:         rt.OwnerID,
				ProjectID:       rt.ProjectID,
				RemainingHours:  st.remainingHours,
				RemainingAmount: st.remainingAmount,
				At:              now,
			}
			if err := e.notifier.BudgetThresholdCrossed(ctx, signal); err != nil {
				e.logger.Error("budget signal failed", "owner", rt.OwnerID, "project", rt.ProjectID, "err", err)
			}
		}
		e.publish(EventBudgetWarning, rt.OwnerID, &updated, nil, now)
		return updated, nil
	case !st.below && rt.BudgetWarningSentAt != nil:
		rt.BudgetWarningSentAt = nil
		updated, err := e.repo.UpdateTimer(ctx, rt)
		if err != nil {
			return models.RunningTimer{}, err
		}
		e.publish(EventBudgetRecovered, rt.OwnerID, &updated, nil, now)
		return updated, nil
	}
	return rt, nil
}
