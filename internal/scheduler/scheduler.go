package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akyairhashvil/timekeep/internal/clock"
)

var ErrClosed = errors.New("scheduler closed")

// Options tunes retry behaviour. Zero values fall back to one attempt with
// no delay.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type Scheduler struct {
	clock  clock.Clock
	store  Store
	logger *slog.Logger
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	handlers map[Kind]Handler
	armed    map[string]*armedJob
	closed   bool
}

type armedJob struct {
	timer clock.Timer
}

func New(clk clock.Clock, store Store, logger *slog.Logger, opts Options) *Scheduler {
	if clk == nil {
		clk = clock.System
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:    clk,
		store:    store,
		logger:   logger.With("component", "scheduler"),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[Kind]Handler),
		armed:    make(map[string]*armedJob),
	}
}

// Handle registers h for kind. Registration must precede Recover.
func (s *Scheduler) Handle(kind Kind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Schedule persists job and arms it. An empty ID is assigned a fresh one;
// an existing ID is replaced.
func (s *Scheduler) Schedule(ctx context.Context, job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Job{}, ErrClosed
	}
	if err := s.store.Put(ctx, job); err != nil {
		return Job{}, fmt.Errorf("schedule %s job %s: %w", job.Kind, job.ID, err)
	}
	s.arm(job)
	s.logger.Debug("job scheduled", "kind", job.Kind, "owner", job.OwnerID, "id", job.ID, "fire_at", job.FireAt)
	return job, nil
}

// Cancel disarms and forgets id. It is best effort: a job that is already
// firing still runs, which handlers tolerate through the version stamp.
func (s *Scheduler) Cancel(ctx context.Context, id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	if a, ok := s.armed[id]; ok {
		a.timer.Stop()
		delete(s.armed, id)
	}
	s.mu.Unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("job cancel failed", "id", id, "err", err)
	}
}

// Recover arms every persisted job. Jobs whose fire time has passed run on
// the next clock tick.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover jobs: %w", err)
	}
	for _, job := range jobs {
		s.arm(job)
	}
	if len(jobs) > 0 {
		s.logger.Info("jobs recovered", "count", len(jobs))
	}
	return len(jobs), nil
}

// Armed returns the number of jobs waiting on the clock.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// Close disarms all jobs without deleting them, so a later Recover picks
// them up again.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, a := range s.armed {
		a.timer.Stop()
		delete(s.armed, id)
	}
	s.mu.Unlock()
	s.cancel()
	return s.store.Close()
}

func (s *Scheduler) arm(job Job) {
	delay := job.FireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.armed[job.ID]; ok {
		prev.timer.Stop()
	}
	a := &armedJob{}
	a.timer = s.clock.AfterFunc(delay, func() { s.fire(job, a) })
	s.armed[job.ID] = a
}

func (s *Scheduler) fire(job Job, a *armedJob) {
	s.mu.Lock()
	if cur, ok := s.armed[job.ID]; !ok || cur != a {
		s.mu.Unlock()
		return
	}
	delete(s.armed, job.ID)
	h := s.handlers[job.Kind]
	s.mu.Unlock()

	ctx := s.ctx
	if h == nil {
		s.logger.Warn("no handler for job", "kind", job.Kind, "id", job.ID)
		s.forget(ctx, job)
		return
	}
	err := h(ctx, job)
	if err == nil {
		s.forget(ctx, job)
		return
	}
	job.Attempts++
	if job.Attempts >= s.opts.MaxAttempts {
		s.logger.Error("job failed permanently", "kind", job.Kind, "owner", job.OwnerID, "id", job.ID, "attempts", job.Attempts, "err", err)
		s.forget(ctx, job)
		return
	}
	s.logger.Warn("job failed, retrying", "kind", job.Kind, "owner", job.OwnerID, "id", job.ID, "attempts", job.Attempts, "err", err)
	job.FireAt = s.clock.Now().Add(s.opts.RetryDelay)
	if err := s.store.Put(ctx, job); err != nil {
		s.logger.Error("job retry persist failed", "id", job.ID, "err", err)
	}
	s.arm(job)
}

func (s *Scheduler) forget(ctx context.Context, job Job) {
	if err := s.store.Delete(ctx, job.ID); err != nil {
		s.logger.Warn("job delete failed", "id", job.ID, "err", err)
	}
}
