// Package scheduler runs one-shot delayed jobs that survive restarts. Jobs
// are persisted before they are armed and removed once their handler
// succeeds or exhausts its attempts.
package scheduler

import (
	"context"
	"time"
)

// Kind names the handler a job is dispatched to.
type Kind string

// Job is a persisted one-shot callback. Version is an opaque stamp the
// handler compares against live state to discard stale work.
type Job struct {
	ID       string    `cbor:"1,keyasint"`
	Kind     Kind      `cbor:"2,keyasint"`
	OwnerID  string    `cbor:"3,keyasint"`
	Version  int64     `cbor:"4,keyasint"`
	FireAt   time.Time `cbor:"5,keyasint"`
	Attempts int       `cbor:"6,keyasint,omitempty"`
}

// Handler processes a due job. A non-nil error schedules a retry.
type Handler func(ctx context.Context, job Job) error

// Store persists pending jobs.
type Store interface {
	Put(ctx context.Context, job Job) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Job, error)
	Close() error
}
