package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyairhashvil/timekeep/internal/clock"
)

const kindTest Kind = "test"

var t0 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduleFiresAtFireAt(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	store := NewMemoryStore()
	s := New(clk, store, quietLogger(), Options{MaxAttempts: 3, RetryDelay: time.Second})

	var fired []Job
	s.Handle(kindTest, func(_ context.Context, job Job) error {
		fired = append(fired, job)
		return nil
	})

	job, err := s.Schedule(ctx, Job{Kind: kindTest, OwnerID: "alice", Version: 42, FireAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	clk.Advance(59 * time.Second)
	assert.Empty(t, fired)

	clk.Advance(time.Second)
	require.Len(t, fired, 1)
	assert.Equal(t, "alice", fired[0].OwnerID)
	assert.Equal(t, int64(42), fired[0].Version)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs, "successful job should be deleted")
	assert.Equal(t, 0, s.Armed())
}

func TestCancelPreventsFire(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	store := NewMemoryStore()
	s := New(clk, store, quietLogger(), Options{})

	calls := 0
	s.Handle(kindTest, func(context.Context, Job) error {
		calls++
		return nil
	})
	job, err := s.Schedule(ctx, Job{Kind: kindTest, FireAt: t0.Add(time.Minute)})
	require.NoError(t, err)

	s.Cancel(ctx, job.ID)
	clk.Advance(time.Hour)
	assert.Equal(t, 0, calls)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestRescheduleSameIDReplaces(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	s := New(clk, NewMemoryStore(), quietLogger(), Options{})

	var versions []int64
	s.Handle(kindTest, func(_ context.Context, job Job) error {
		versions = append(versions, job.Version)
		return nil
	})
	_, err := s.Schedule(ctx, Job{ID: "fixed", Kind: kindTest, Version: 1, FireAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	_, err = s.Schedule(ctx, Job{ID: "fixed", Kind: kindTest, Version: 2, FireAt: t0.Add(2 * time.Minute)})
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	assert.Equal(t, []int64{2}, versions)
}

func TestFailedJobRetriesUntilMaxAttempts(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	store := NewMemoryStore()
	s := New(clk, store, quietLogger(), Options{MaxAttempts: 3, RetryDelay: 10 * time.Second})

	var attempts []int
	s.Handle(kindTest, func(_ context.Context, job Job) error {
		attempts = append(attempts, job.Attempts)
		return errors.New("transient")
	})
	_, err := s.Schedule(ctx, Job{Kind: kindTest, FireAt: t0})
	require.NoError(t, err)

	clk.Advance(0)
	assert.Equal(t, []int{0}, attempts)
	clk.Advance(10 * time.Second)
	assert.Equal(t, []int{0, 1}, attempts)
	clk.Advance(time.Minute)
	assert.Equal(t, []int{0, 1, 2}, attempts)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs, "exhausted job should be dropped")
}

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	s := New(clk, NewMemoryStore(), quietLogger(), Options{MaxAttempts: 5, RetryDelay: time.Second})

	calls := 0
	s.Handle(kindTest, func(context.Context, Job) error {
		calls++
		if calls == 1 {
			return errors.New("busy")
		}
		return nil
	})
	_, err := s.Schedule(ctx, Job{Kind: kindTest, FireAt: t0.Add(time.Second)})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, s.Armed())
}

func TestBoltStoreRecoverAfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.db")
	clk := clock.NewFake(t0)

	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	first := New(clk, store, quietLogger(), Options{})
	due, err := first.Schedule(ctx, Job{Kind: kindTest, OwnerID: "alice", Version: 7, FireAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	later, err := first.Schedule(ctx, Job{Kind: kindTest, OwnerID: "bob", Version: 8, FireAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Downtime spans the first job's fire time.
	clk.Set(t0.Add(10 * time.Minute))

	store, err = OpenBoltStore(path)
	require.NoError(t, err)
	second := New(clk, store, quietLogger(), Options{})
	defer second.Close()

	var fired []string
	second.Handle(kindTest, func(_ context.Context, job Job) error {
		fired = append(fired, job.ID)
		return nil
	})
	n, err := second.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clk.Advance(0)
	assert.Equal(t, []string{due.ID}, fired)

	clk.Advance(time.Hour)
	assert.Equal(t, []string{due.ID, later.ID}, fired)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestBoltStoreLockedFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	holder, err := OpenBoltStore(path)
	require.NoError(t, err)

	start := time.Now()
	_, err = OpenBoltStore(path)
	require.ErrorIs(t, err, ErrStoreLocked)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, holder.Close())
	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
}

func TestBoltStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	in := Job{ID: "j1", Kind: kindTest, OwnerID: "alice", Version: t0.UnixMilli(), FireAt: t0.Add(90 * time.Second), Attempts: 2}
	require.NoError(t, store.Put(ctx, in))

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, in.ID, jobs[0].ID)
	assert.Equal(t, in.Version, jobs[0].Version)
	assert.True(t, in.FireAt.Equal(jobs[0].FireAt))
	assert.Equal(t, 2, jobs[0].Attempts)

	require.NoError(t, store.Delete(ctx, "j1"))
	require.NoError(t, store.Delete(ctx, "missing"))
	jobs, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestScheduleAfterCloseFails(t *testing.T) {
	s := New(clock.NewFake(t0), NewMemoryStore(), quietLogger(), Options{})
	require.NoError(t, s.Close())
	_, err := s.Schedule(context.Background(), Job{Kind: kindTest, FireAt: t0})
	assert.ErrorIs(t, err, ErrClosed)
}
