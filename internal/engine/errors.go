package engine

import (
	"errors"
	"fmt"

	"github.com/akyairhashvil/timekeep/internal/config"
)

var (
	ErrTimerAlreadyRunning = errors.New("a timer is already running; stop the current timer first")
	ErrTimerNotFound       = errors.New("no running timer")
)

// ConflictError reports a start attempted while a timer is running.
type ConflictError struct {
	Code    string
	OwnerID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, ErrTimerAlreadyRunning)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrTimerAlreadyRunning
}

// NotFoundError reports an operation on a timer that does not exist.
type NotFoundError struct {
	Resource string
	OwnerID  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for owner %s", e.Resource, e.OwnerID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrTimerNotFound
}

type ValidationError = config.ValidationError

func conflictTimer(ownerID string) error {
	return &ConflictError{Code: "TimerAlreadyRunning", OwnerID: ownerID}
}

func timerNotFound(ownerID string) error {
	return &NotFoundError{Resource: "Timer", OwnerID: ownerID}
}
