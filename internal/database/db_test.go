package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T, ctx context.Context) *Database {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("db close failed: %v", err)
		}
	})
	return db
}

func newTimer(owner string, projectID int64, at time.Time) (models.RunningTimer, models.TimeEntry) {
	rt := models.RunningTimer{
		OwnerID:         owner,
		ProjectID:       projectID,
		StartedAt:       at,
		LastHeartbeatAt: at,
		Interrupt:       models.InterruptActive{NextAt: at.Add(5 * time.Minute)},
		StartedFrom:     models.ClientWeb,
	}
	entry := models.TimeEntry{OwnerID: owner, ProjectID: projectID, StartedAt: at, Source: models.SourceTimer}
	return rt, entry
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	if err := db.Close(); err != nil {
		t.Fatalf("db close failed: %v", err)
	}
	again, err := Open(ctx, db.dbFile)
	if err != nil {
		t.Fatalf("Open second run failed: %v", err)
	}
	defer again.Close()
	ok, err := again.hasColumn(ctx, "running_timers", "interrupt_deadline")
	if err != nil || !ok {
		t.Fatalf("expected interrupt_deadline column, ok=%v err=%v", ok, err)
	}
}

func TestCreateTimerRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	org := "acme"
	cat := int64(9)
	rt, entry := newTimer("alice", 1, baseTime.Add(123*time.Millisecond))
	rt.OrganizationID = &org
	rt.CategoryID = &cat
	rt.Pomodoro = &models.PomodoroState{
		Phase:        models.PhaseWork,
		TransitionAt: baseTime.Add(25 * time.Minute),
		WorkMinutes:  25,
		BreakMinutes: 5,
		CurrentCycle: 1,
	}

	created, err := db.CreateTimer(ctx, rt, entry)
	if err != nil {
		t.Fatalf("CreateTimer failed: %v", err)
	}
	if created.EntryID == 0 || created.Revision != 1 {
		t.Fatalf("unexpected created timer %+v", created)
	}

	got, err := db.GetRunningTimer(ctx, "alice")
	if err != nil {
		t.Fatalf("GetRunningTimer failed: %v", err)
	}
	if !got.StartedAt.Equal(rt.StartedAt) {
		t.Fatalf("StartedAt = %v, want %v (ms precision)", got.StartedAt, rt.StartedAt)
	}
	if got.OrganizationID == nil || *got.OrganizationID != "acme" || got.CategoryID == nil || *got.CategoryID != 9 {
		t.Fatalf("nullable fields lost: %+v", got)
	}
	next, ok := got.NextInterruptAt()
	if !ok || !next.Equal(rt.StartedAt.Add(5*time.Minute)) {
		t.Fatalf("NextInterruptAt = %v, %v", next, ok)
	}
	if got.Pomodoro == nil || got.Pomodoro.Phase != models.PhaseWork || got.Pomodoro.WorkMinutes != 25 {
		t.Fatalf("pomodoro state lost: %+v", got.Pomodoro)
	}

	open, err := db.GetEntry(ctx, created.EntryID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if !open.Open() || open.Seconds != nil {
		t.Fatalf("expected open entry, got %+v", open)
	}
}

func TestCreateTimerConflict(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	rt, entry := newTimer("alice", 1, baseTime)
	if _, err := db.CreateTimer(ctx, rt, entry); err != nil {
		t.Fatalf("CreateTimer failed: %v", err)
	}
	_, err := db.CreateTimer(ctx, rt, entry)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Entity != EntityTimer {
		t.Fatalf("expected OpError for timer, got %v", err)
	}
	n, err := db.TimerCount(ctx, "alice")
	if err != nil || n != 1 {
		t.Fatalf("TimerCount = %d, %v", n, err)
	}
}

func TestUpdateTimerStaleRevision(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	rt, entry := newTimer("alice", 1, baseTime)
	created, err := db.CreateTimer(ctx, rt, entry)
	if err != nil {
		t.Fatalf("CreateTimer failed: %v", err)
	}

	shown := baseTime.Add(5 * time.Minute)
	first := created
	first.Interrupt = models.InterruptAwaitingAck{ShownAt: shown, Deadline: shown.Add(time.Minute)}
	updated, err := db.UpdateTimer(ctx, first)
	if err != nil {
		t.Fatalf("UpdateTimer failed: %v", err)
	}
	if updated.Revision != 2 {
		t.Fatalf("Revision = %d, want 2", updated.Revision)
	}

	second := created
	second.LastHeartbeatAt = baseTime.Add(time.Minute)
	if _, err := db.UpdateTimer(ctx, second); !errors.Is(err, ErrStaleRevision) {
		t.Fatalf("expected ErrStaleRevision, got %v", err)
	}

	got, err := db.GetRunningTimer(ctx, "alice")
	if err != nil {
		t.Fatalf("GetRunningTimer failed: %v", err)
	}
	s, ok := got.AwaitingAck()
	if !ok || !s.ShownAt.Equal(shown) || !s.Deadline.Equal(shown.Add(time.Minute)) {
		t.Fatalf("awaiting state lost: %+v", got.Interrupt)
	}
}

func TestFinalizeTimerSealsExactSeconds(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	start := baseTime.Add(400 * time.Millisecond)
	rt, entry := newTimer("alice", 1, start)
	created, err := db.CreateTimer(ctx, rt, entry)
	if err != nil {
		t.Fatalf("CreateTimer failed: %v", err)
	}

	stop := start.Add(6*time.Minute + 999*time.Millisecond)
	sealed, err := db.FinalizeTimer(ctx, created, Seal{StoppedAt: stop, Source: models.SourceAutoStop})
	if err != nil {
		t.Fatalf("FinalizeTimer failed: %v", err)
	}
	if sealed.Seconds == nil || *sealed.Seconds != 360 {
		t.Fatalf("Seconds = %v, want 360", sealed.Seconds)
	}
	if sealed.Source != models.SourceAutoStop || sealed.StoppedAt == nil || !sealed.StoppedAt.Equal(stop) {
		t.Fatalf("unexpected sealed entry %+v", sealed)
	}
	if _, err := db.GetRunningTimer(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected timer deleted, got %v", err)
	}

	if _, err := db.FinalizeTimer(ctx, created, Seal{StoppedAt: stop, Source: models.SourceTimer}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second finalize should be ErrNotFound, got %v", err)
	}
	entries, err := db.ListEntries(ctx, "alice", EntryFilter{IncludeOpen: true})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
}

func TestRotateSegment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	rt, entry := newTimer("alice", 1, baseTime)
	created, err := db.CreateTimer(ctx, rt, entry)
	if err != nil {
		t.Fatalf("CreateTimer failed: %v", err)
	}
	boundary := baseTime.Add(25 * time.Minute)
	created.Pomodoro = &models.PomodoroState{Phase: models.PhaseBreak, TransitionAt: boundary.Add(5 * time.Minute), WorkMinutes: 25, BreakMinutes: 5, CurrentCycle: 1}

	next := models.TimeEntry{OwnerID: "alice", ProjectID: 1, StartedAt: boundary, Source: models.SourcePomodoroBreak}
	updated, sealed, err := db.RotateSegment(ctx, created, Seal{StoppedAt: boundary, Source: models.SourceTimer}, next)
	if err != nil {
		t.Fatalf("RotateSegment failed: %v", err)
	}
	if sealed.Seconds == nil || *sealed.Seconds != 1500 {
		t.Fatalf("sealed seconds = %v, want 1500", sealed.Seconds)
	}
	if updated.EntryID == created.EntryID || updated.Revision != created.Revision+1 {
		t.Fatalf("unexpected rotated timer %+v", updated)
	}
	open, err := db.GetEntry(ctx, updated.EntryID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if !open.Open() || open.Source != models.SourcePomodoroBreak || !open.StartedAt.Equal(boundary) {
		t.Fatalf("unexpected open segment %+v", open)
	}

	if _, _, err := db.RotateSegment(ctx, created, Seal{StoppedAt: boundary, Source: models.SourceTimer}, next); !errors.Is(err, ErrStaleRevision) {
		t.Fatalf("replayed rotation should be stale, got %v", err)
	}
}

func TestProjectTrackedSecondsExcludesOverrunAndBreaks(t *testing.T) {
	ctx := context.Background()
	db := NewTestDataBuilder(t).
		WithProject(models.Project{ID: 7, Name: "Apollo"}).
		WithSealedEntry("alice", 7, baseTime, time.Hour, models.SourceTimer, false).
		WithSealedEntry("bob", 7, baseTime, 30*time.Minute, models.SourceTimer, false).
		WithSealedEntry("alice", 7, baseTime, 2*time.Hour, models.SourceOverrun, true).
		WithSealedEntry("alice", 7, baseTime, 5*time.Minute, models.SourcePomodoroBreak, false).
		WithSealedEntry("alice", 8, baseTime, time.Hour, models.SourceTimer, false).
		Build()

	rt, entry := newTimer("carol", 7, baseTime)
	if _, err := db.CreateTimer(ctx, rt, entry); err != nil {
		t.Fatalf("CreateTimer failed: %v", err)
	}

	got, err := db.ProjectTrackedSeconds(ctx, 7, baseTime.Add(10*time.Minute+500*time.Millisecond))
	if err != nil {
		t.Fatalf("ProjectTrackedSeconds failed: %v", err)
	}
	want := int64(3600 + 1800 + 600)
	if got != want {
		t.Fatalf("ProjectTrackedSeconds = %d, want %d", got, want)
	}

	overruns, err := db.ListOverruns(ctx, "alice")
	if err != nil {
		t.Fatalf("ListOverruns failed: %v", err)
	}
	if len(overruns) != 1 || !overruns[0].IsOverrun {
		t.Fatalf("unexpected overruns %+v", overruns)
	}
}

func TestProjectAndSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	hours := 8.0
	id, err := db.UpsertProject(ctx, models.Project{Name: "Budgeted", BudgetHours: &hours})
	if err != nil {
		t.Fatalf("UpsertProject failed: %v", err)
	}
	p, err := db.GetProject(ctx, id)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if p.BudgetHours == nil || *p.BudgetHours != 8 || p.BudgetAmount != nil {
		t.Fatalf("unexpected project %+v", p)
	}
	if _, err := db.GetProject(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, ok, err := db.GetUserSettings(ctx, "alice"); err != nil || ok {
		t.Fatalf("expected no settings row, ok=%v err=%v", ok, err)
	}
	threshold := 1.0
	in := models.UserSettings{
		OwnerID:                     "alice",
		InterruptEnabled:            true,
		InterruptInterval:           30 * time.Second,
		GracePeriod:                 45 * time.Second,
		PomodoroWorkMinutes:         50,
		PomodoroBreakMinutes:        10,
		BudgetWarningThresholdHours: &threshold,
	}
	if err := db.SaveUserSettings(ctx, in); err != nil {
		t.Fatalf("SaveUserSettings failed: %v", err)
	}
	out, ok, err := db.GetUserSettings(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("GetUserSettings ok=%v err=%v", ok, err)
	}
	if out.InterruptInterval != 30*time.Second || out.GracePeriod != 45*time.Second || out.PomodoroWorkMinutes != 50 {
		t.Fatalf("unexpected settings %+v", out)
	}
	if out.BudgetWarningThresholdHours == nil || *out.BudgetWarningThresholdHours != 1 {
		t.Fatalf("threshold lost: %+v", out)
	}
}
