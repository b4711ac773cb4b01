package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akyairhashvil/timekeep/internal/clock"
	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/database"
	"github.com/akyairhashvil/timekeep/internal/engine"
	"github.com/akyairhashvil/timekeep/internal/scheduler"
	"github.com/akyairhashvil/timekeep/internal/util"
)

type globalFlags struct {
	configPath string
	dataDir    string
	owner      string
	logLevel   string
}

// app holds everything a command needs; close releases it.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *database.Database
	sched  *scheduler.Scheduler
	eng    *engine.Engine
	owner  string
}

func openApp(ctx context.Context, flags *globalFlags, logOut io.Writer) (*app, error) {
	cfgPath := flags.configPath
	if cfgPath == "" {
		cfgPath = os.Getenv(config.ConfigEnvVar)
	}
	if cfgPath == "" {
		cfgPath = filepath.Join(util.ConfigDir(config.AppName), "config.toml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel()
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger := util.NewLogger(logOut, level)
	slog.SetDefault(logger)

	dataDir := flags.dataDir
	if dataDir == "" {
		dataDir = util.DataDir(config.AppName)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := database.Open(ctx, cfg.DatabasePath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var store scheduler.Store
	bolt, err := scheduler.OpenBoltStore(cfg.JobsPath(dataDir))
	switch {
	case errors.Is(err, scheduler.ErrStoreLocked):
		// Usually `watch` holds the job file; timers are still caught up at
		// every checkpoint.
		logger.Debug("job store held by another process, using memory store", "path", cfg.JobsPath(dataDir))
		store = scheduler.NewMemoryStore()
	case err != nil:
		logger.Warn("job store unavailable, using memory store", "err", err)
		store = scheduler.NewMemoryStore()
	default:
		store = bolt
	}
	sched := scheduler.New(clock.System, store, logger, scheduler.Options{
		MaxAttempts: cfg.MaxAttempts(),
		RetryDelay:  cfg.RetryDelay(),
	})

	eng, err := engine.New(engine.Options{
		Repo:      db,
		Scheduler: sched,
		Clock:     clock.System,
		Config:    cfg,
		Notifier:  logNotifier{logger: logger},
		Logger:    logger,
	})
	if err != nil {
		_ = sched.Close()
		_ = db.Close()
		return nil, err
	}

	owner := strings.TrimSpace(flags.owner)
	if owner == "" {
		owner = os.Getenv("USER")
	}
	if owner == "" {
		owner = "local"
	}
	return &app{cfg: cfg, logger: logger, db: db, sched: sched, eng: eng, owner: owner}, nil
}

func (a *app) close() {
	util.LogError("close scheduler", a.sched.Close())
	util.LogError("close database", a.db.Close())
}

// logNotifier stands in for notification delivery: budget warnings land in
// the log.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) BudgetThresholdCrossed(_ context.Context, s engine.BudgetSignal) error {
	attrs := []any{"owner", s.OwnerID, "project", s.ProjectID}
	if s.RemainingHours != nil {
		attrs = append(attrs, "remaining_hours", *s.RemainingHours)
	}
	if s.RemainingAmount != nil {
		attrs = append(attrs, "remaining_amount", *s.RemainingAmount)
	}
	n.logger.Warn("budget threshold crossed", attrs...)
	return nil
}

// withApp opens the app around fn.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
