package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/akyairhashvil/timekeep/internal/clock"
	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/models"
	"github.com/akyairhashvil/timekeep/internal/scheduler"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const projectID int64 = 1

type harness struct {
	t     *testing.T
	ctx   context.Context
	clk   *clock.Fake
	db    *database.Database
	cfg   config.Config
	sched *scheduler.Scheduler
	eng   *Engine
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, tweak func(*Options)) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("db close failed: %v", err)
		}
	})
	h := &harness{t: t, ctx: ctx, clk: clock.NewFake(t0), db: db, cfg: config.Default()}
	opts := Options{Repo: db, Clock: h.clk, Config: h.cfg, Logger: quietLogger()}
	if tweak != nil {
		tweak(&opts)
	}
	h.cfg = opts.Config
	h.attach(opts)
	return h
}

// attach builds a fresh scheduler and engine over the harness database, as
// a process restart would.
func (h *harness) attach(opts Options) {
	h.t.Helper()
	h.sched = scheduler.New(h.clk, scheduler.NewMemoryStore(), quietLogger(), scheduler.Options{MaxAttempts: 3, RetryDelay: time.Second})
	opts.Scheduler = h.sched
	eng, err := New(opts)
	if err != nil {
		h.t.Fatalf("New failed: %v", err)
	}
	h.eng = eng
}

func (h *harness) settings(owner string, edit func(*models.UserSettings)) {
	h.t.Helper()
	s := h.cfg.DefaultSettings(owner)
	edit(&s)
	if err := h.eng.UpdateSettings(h.ctx, s); err != nil {
		h.t.Fatalf("UpdateSettings failed: %v", err)
	}
}

func (h *harness) interrupts(owner string, interval, grace time.Duration) {
	h.settings(owner, func(s *models.UserSettings) {
		s.InterruptEnabled = true
		s.InterruptInterval = interval
		s.GracePeriod = grace
	})
}

func (h *harness) noInterrupts(owner string) {
	h.settings(owner, func(s *models.UserSettings) { s.InterruptEnabled = false })
}

func (h *harness) start(owner string, req StartRequest) models.RunningTimer {
	h.t.Helper()
	if req.ProjectID == 0 {
		req.ProjectID = projectID
	}
	rt, err := h.eng.Start(h.ctx, owner, req)
	if err != nil {
		h.t.Fatalf("Start failed: %v", err)
	}
	return rt
}

// timer reads the stored row without running a checkpoint.
func (h *harness) timer(owner string) *models.RunningTimer {
	h.t.Helper()
	rt, err := h.eng.loadTimer(h.ctx, owner)
	if err != nil {
		h.t.Fatalf("loadTimer failed: %v", err)
	}
	return rt
}

func (h *harness) entries(owner string) []models.TimeEntry {
	h.t.Helper()
	entries, err := h.db.ListEntries(h.ctx, owner, database.EntryFilter{IncludeOpen: true})
	if err != nil {
		h.t.Fatalf("ListEntries failed: %v", err)
	}
	return entries
}

func (h *harness) sealed(owner string) []models.TimeEntry {
	h.t.Helper()
	var out []models.TimeEntry
	for _, e := range h.entries(owner) {
		if !e.Open() {
			out = append(out, e)
		}
	}
	return out
}

func assertSealed(t *testing.T, e models.TimeEntry, seconds int64, source models.EntrySource) {
	t.Helper()
	if e.Open() || e.Seconds == nil {
		t.Fatalf("entry %d still open", e.ID)
	}
	if *e.Seconds != seconds {
		t.Fatalf("entry %d seconds = %d, want %d", e.ID, *e.Seconds, seconds)
	}
	if e.Source != source {
		t.Fatalf("entry %d source = %s, want %s", e.ID, e.Source, source)
	}
	if want := int64(e.StoppedAt.Sub(e.StartedAt) / time.Second); *e.Seconds != want {
		t.Fatalf("entry %d seconds %d drift from stamps (%d)", e.ID, *e.Seconds, want)
	}
}
