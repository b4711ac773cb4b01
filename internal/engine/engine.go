// Package engine owns the running-timer lifecycle: start, heartbeat,
// interrupt prompts with grace-period auto-stop, pomodoro segmentation,
// budget warnings and finalization into time entries.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/akyairhashvil/timekeep/internal/clock"
	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
	"github.com/akyairhashvil/timekeep/internal/scheduler"
)

const (
	JobInterrupt scheduler.Kind = "interruptFire"
	JobAutoStop  scheduler.Kind = "autoStopFire"
	JobPomodoro  scheduler.Kind = "pomodoroPhaseFire"
)

const maxStaleRetries = 3

type Options struct {
	Repo       database.Repository
	Scheduler  *scheduler.Scheduler
	Clock      clock.Clock
	Config     config.Config
	Notifier   Notifier
	Authorizer Authorizer
	Logger     *slog.Logger
}

type Engine struct {
	repo      database.Repository
	sched     *scheduler.Scheduler
	clock     clock.Clock
	cfg       config.Config
	notifier  Notifier
	auth      Authorizer
	logger    *slog.Logger
	locks     *ownerLocks
	hub       *Hub
	staleTime time.Duration

	pendingMu sync.Mutex
	pending   map[string]map[scheduler.Kind]string
}

func New(opts Options) (*Engine, error) {
	if opts.Repo == nil {
		return nil, errors.New("engine: repository is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("engine: scheduler is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Engine{
		repo:      opts.Repo,
		sched:     opts.Scheduler,
		clock:     opts.Clock,
		cfg:       opts.Config,
		notifier:  opts.Notifier,
		auth:      opts.Authorizer,
		logger:    opts.Logger.With("component", "engine"),
		locks:     newOwnerLocks(),
		hub:       NewHub(),
		staleTime: opts.Config.StaleThreshold(),
		pending:   make(map[string]map[scheduler.Kind]string),
	}
	e.sched.Handle(JobInterrupt, e.handleInterruptJob)
	e.sched.Handle(JobAutoStop, e.handleAutoStopJob)
	e.sched.Handle(JobPomodoro, e.handlePomodoroJob)
	return e, nil
}

// Subscribe streams timer events for ownerID until cancel is called.
func (e *Engine) Subscribe(ownerID string, buffer int) (<-chan Event, func()) {
	return e.hub.Subscribe(ownerID, buffer)
}

// Recover re-arms persisted jobs. When the job store came back empty, jobs
// are rebuilt from the running timers themselves.
func (e *Engine) Recover(ctx context.Context) error {
	n, err := e.sched.Recover(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	timers, err := e.repo.ListRunningTimers(ctx)
	if err != nil {
		return err
	}
	for _, rt := range timers {
		e.armJobs(ctx, rt)
	}
	if len(timers) > 0 {
		e.logger.Info("jobs rebuilt from running timers", "timers", len(timers))
	}
	return nil
}

// now is truncated to the millisecond precision timestamps are stored at.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Millisecond)
}

func (e *Engine) authorize(ctx context.Context, ownerID string, orgID *string) error {
	if e.auth == nil {
		return nil
	}
	return e.auth.Authorize(ctx, ownerID, orgID)
}

// withOwner runs fn under the owner's lock. A concurrent write from another
// process surfaces as ErrStaleRevision and fn is re-run against fresh state.
func (e *Engine) withOwner(ctx context.Context, ownerID string, fn func() error) error {
	unlock := e.locks.Lock(ownerID)
	defer unlock()
	var err error
	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = fn()
		if !errors.Is(err, database.ErrStaleRevision) {
			return err
		}
		e.logger.Debug("stale revision, retrying", "owner", ownerID, "attempt", attempt+1)
	}
	return err
}

// loadTimer returns nil without error when the owner has no timer.
func (e *Engine) loadTimer(ctx context.Context, ownerID string) (*models.RunningTimer, error) {
	rt, err := e.repo.GetRunningTimer(ctx, ownerID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (e *Engine) settingsFor(ctx context.Context, ownerID string) (models.UserSettings, error) {
	s, ok, err := e.repo.GetUserSettings(ctx, ownerID)
	if err != nil {
		return models.UserSettings{}, err
	}
	if !ok {
		return e.cfg.DefaultSettings(ownerID), nil
	}
	return s, nil
}

func (e *Engine) publish(typ EventType, ownerID string, rt *models.RunningTimer, entry *models.TimeEntry, at time.Time) {
	ev := Event{Type: typ, OwnerID: ownerID, At: at}
	if rt != nil {
		cp := *rt
		ev.Timer = &cp
	}
	if entry != nil {
		cp := *entry
		ev.Entry = &cp
	}
	e.hub.Publish(ev)
}

// schedule arms a job for the owner and replaces any earlier job of the same
// kind. Failures are logged: checkpoints catch up on missed transitions.
func (e *Engine) schedule(ctx context.Context, kind scheduler.Kind, ownerID string, version, fireAt time.Time) {
	job, err := e.sched.Schedule(ctx, scheduler.Job{
		Kind:    kind,
		OwnerID: ownerID,
		Version: version.UnixMilli(),
		FireAt:  fireAt,
	})
	if err != nil {
		e.logger.Warn("job not scheduled", "kind", kind, "owner", ownerID, "err", err)
		return
	}
	e.pendingMu.Lock()
	byKind := e.pending[ownerID]
	if byKind == nil {
		byKind = make(map[scheduler.Kind]string)
		e.pending[ownerID] = byKind
	}
	prev := byKind[kind]
	byKind[kind] = job.ID
	e.pendingMu.Unlock()
	if prev != "" && prev != job.ID {
		e.sched.Cancel(ctx, prev)
	}
}

func (e *Engine) cancelJob(ctx context.Context, kind scheduler.Kind, ownerID string) {
	e.pendingMu.Lock()
	id := e.pending[ownerID][kind]
	delete(e.pending[ownerID], kind)
	e.pendingMu.Unlock()
	e.sched.Cancel(ctx, id)
}

func (e *Engine) cancelAllJobs(ctx context.Context, ownerID string) {
	e.pendingMu.Lock()
	byKind := e.pending[ownerID]
	delete(e.pending, ownerID)
	e.pendingMu.Unlock()
	for _, id := range byKind {
		e.sched.Cancel(ctx, id)
	}
}

// armJobs schedules a job for every pending transition of rt.
func (e *Engine) armJobs(ctx context.Context, rt models.RunningTimer) {
	if next, ok := rt.NextInterruptAt(); ok {
		e.schedule(ctx, JobInterrupt, rt.OwnerID, next, next)
	}
	if s, ok := rt.AwaitingAck(); ok {
		e.schedule(ctx, JobAutoStop, rt.OwnerID, s.ShownAt, s.Deadline)
	}
	if rt.Pomodoro != nil {
		e.schedule(ctx, JobPomodoro, rt.OwnerID, rt.Pomodoro.TransitionAt, rt.Pomodoro.TransitionAt)
	}
}
