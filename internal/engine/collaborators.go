package engine

import (
	"context"
	"time"
)

//go:generate mockgen -source=collaborators.go -destination=mock_collaborators_test.go -package=engine

// BudgetSignal is raised once per breach episode when a project's remaining
// budget drops to or below the owner's threshold.
type BudgetSignal struct {
	OwnerID         string
	ProjectID       int64
	RemainingHours  *float64
	RemainingAmount *float64
	At              time.Time
}

// Notifier delivers budget warnings. Delivery itself happens elsewhere.
type Notifier interface {
	BudgetThresholdCrossed(ctx context.Context, signal BudgetSignal) error
}

// Authorizer resolves membership before any operation proceeds.
// organizationID is nil for the personal workspace.
type Authorizer interface {
	Authorize(ctx context.Context, ownerID string, organizationID *string) error
}
