package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/akyairhashvil/timekeep/internal/engine"
	"github.com/akyairhashvil/timekeep/internal/models"
	"github.com/akyairhashvil/timekeep/internal/tui"
	"github.com/akyairhashvil/timekeep/internal/util"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "timekeep",
		Short:         "Track time with interrupts, pomodoro phases and budget warnings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (.toml or .yaml)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory for the database and job store")
	root.PersistentFlags().StringVar(&flags.owner, "owner", "", "owner id (defaults to $USER)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug|info|warn|error")

	root.AddCommand(
		newStartCmd(flags),
		newStopCmd(flags),
		newAckCmd(flags),
		newHeartbeatCmd(flags),
		newStatusCmd(flags),
		newOverrunsCmd(flags),
		newWatchCmd(flags),
		newBudgetCmd(flags),
		newSettingsCmd(flags),
	)
	return root
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	var (
		org      string
		category int64
		pomodoro bool
		work     int
		brk      int
	)
	cmd := &cobra.Command{
		Use:   "start <project-id>",
		Short: "Start a timer on a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			req := engine.StartRequest{ProjectID: projectID, StartedFrom: models.ClientCLI}
			if org != "" {
				req.OrganizationID = util.Ptr(org)
			}
			if category > 0 {
				req.CategoryID = util.Ptr(category)
			}
			if pomodoro {
				req.Pomodoro = &models.PomodoroConfig{WorkMinutes: work, BreakMinutes: brk}
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				rt, err := a.eng.Start(ctx, a.owner, req)
				if errors.Is(err, engine.ErrTimerAlreadyRunning) {
					return errors.New("a timer is already running; stop the current timer first")
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started timer on project %d at %s\n", rt.ProjectID, rt.StartedAt.Local().Format(time.Kitchen))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "organization id")
	cmd.Flags().Int64Var(&category, "category", 0, "category id")
	cmd.Flags().BoolVar(&pomodoro, "pomodoro", false, "alternate work and break phases")
	cmd.Flags().IntVar(&work, "work", 0, "pomodoro work minutes (default from settings)")
	cmd.Flags().IntVar(&brk, "break", 0, "pomodoro break minutes (default from settings)")
	return cmd
}

func newStopCmd(flags *globalFlags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				res, err := a.eng.Stop(ctx, a.owner, engine.StopOptions{Source: models.EntrySource(source)})
				if err != nil {
					return err
				}
				if !res.Success {
					if res.EntryID != 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "Timer had already ended (%s): %s recorded (entry %d)\n",
							res.Source, tui.FormatDuration(time.Duration(res.Seconds)*time.Second), res.EntryID)
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), "No timer running.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped: %s recorded (entry %d, %s)\n",
					tui.FormatDuration(time.Duration(res.Seconds)*time.Second), res.EntryID, res.Source)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "override the entry source")
	return cmd
}

func newAckCmd(flags *globalFlags) *cobra.Command {
	var stop bool
	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Answer the \"still working?\" prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				err := a.eng.AckInterrupt(ctx, a.owner, !stop)
				if errors.Is(err, engine.ErrTimerNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to acknowledge.")
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "stop instead of continuing")
	return cmd
}

func newHeartbeatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Report that the owner is still active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				return a.eng.Heartbeat(ctx, a.owner)
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				view, err := a.eng.GetRunning(ctx, a.owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if view == nil {
					fmt.Fprintln(out, "No timer running.")
					return nil
				}
				fmt.Fprintf(out, "Project %d: running %s\n", view.ProjectID, tui.FormatClock(time.Duration(view.ElapsedSeconds)*time.Second))
				if p := view.Pomodoro; p != nil {
					fmt.Fprintf(out, "Pomodoro %s, cycle %d, %s left\n", p.Phase, p.CurrentCycle, tui.FormatTimeRemaining(p.TransitionAt.Sub(view.At)))
				}
				if st, ok := view.AwaitingAck(); ok {
					fmt.Fprintf(out, "Still working? Auto-stop in %s (timekeep ack)\n", tui.FormatTimeRemaining(st.Deadline.Sub(view.At)))
				}
				if view.BudgetWarningSentAt != nil {
					fmt.Fprintln(out, "Project budget is running low.")
				}
				return nil
			})
		},
	}
}

func newOverrunsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "overruns",
		Short: "List entries recorded from stale timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				entries, err := a.eng.ListOverruns(ctx, a.owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No overruns.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "#%d project %d  %s  %s\n", e.ID, e.ProjectID,
						e.StartedAt.Local().Format("2006-01-02 15:04"),
						tui.FormatDuration(time.Duration(util.Deref(e.Seconds))*time.Second))
				}
				return nil
			})
		},
	}
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view that keeps the timer alive and fires scheduled transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("watch needs an interactive terminal")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.eng.Recover(ctx); err != nil {
					return err
				}
				events, cancel := a.eng.Subscribe(a.owner, 16)
				defer cancel()
				tui.SetTheme(theme)
				p := tea.NewProgram(tui.NewWatchModel(ctx, a.eng, a.owner, events), tea.WithContext(ctx))
				_, err := p.Run()
				if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "default", "default|dracula")
	return cmd
}

func newBudgetCmd(flags *globalFlags) *cobra.Command {
	budget := &cobra.Command{Use: "budget", Short: "Manage project budgets"}
	var (
		name   string
		hours  float64
		amount float64
		rate   float64
	)
	set := &cobra.Command{
		Use:   "set <project-id>",
		Short: "Set a project's budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			p := models.Project{ID: projectID, Name: name}
			if p.Name == "" {
				p.Name = "project " + args[0]
			}
			if cmd.Flags().Changed("hours") {
				p.BudgetHours = util.Ptr(hours)
			}
			if cmd.Flags().Changed("amount") {
				p.BudgetAmount = util.Ptr(amount)
			}
			if cmd.Flags().Changed("rate") {
				p.HourlyRate = util.Ptr(rate)
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if _, err := a.eng.SaveProject(ctx, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Budget saved for project %d\n", projectID)
				return nil
			})
		},
	}
	set.Flags().StringVar(&name, "name", "", "project name")
	set.Flags().Float64Var(&hours, "hours", 0, "budget in hours")
	set.Flags().Float64Var(&amount, "amount", 0, "budget amount")
	set.Flags().Float64Var(&rate, "rate", 0, "hourly rate")
	budget.AddCommand(set)
	return budget
}

func newSettingsCmd(flags *globalFlags) *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Show or change interrupt, pomodoro and budget settings"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the owner's settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				s, err := a.eng.Settings(ctx, a.owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "interrupts:        %t every %s\n", s.InterruptEnabled, s.InterruptInterval)
				fmt.Fprintf(out, "grace period:      %s\n", s.GracePeriod)
				fmt.Fprintf(out, "pomodoro:          %dm work / %dm break\n", s.PomodoroWorkMinutes, s.PomodoroBreakMinutes)
				if s.BudgetWarningThresholdHours != nil {
					fmt.Fprintf(out, "budget warning at: %.2fh remaining\n", *s.BudgetWarningThresholdHours)
				}
				if s.BudgetWarningThresholdAmount != nil {
					fmt.Fprintf(out, "budget warning at: %.2f remaining\n", *s.BudgetWarningThresholdAmount)
				}
				return nil
			})
		},
	}

	var (
		interrupts bool
		interval   time.Duration
		grace      time.Duration
		work, brk  int
		warnHours  float64
		warnAmount float64
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change settings; unspecified flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				s, err := a.eng.Settings(ctx, a.owner)
				if err != nil {
					return err
				}
				f := cmd.Flags()
				if f.Changed("interrupts") {
					s.InterruptEnabled = interrupts
				}
				if f.Changed("interval") {
					s.InterruptInterval = interval
				}
				if f.Changed("grace") {
					s.GracePeriod = grace
				}
				if f.Changed("work") {
					s.PomodoroWorkMinutes = work
				}
				if f.Changed("break") {
					s.PomodoroBreakMinutes = brk
				}
				if f.Changed("warn-hours") {
					s.BudgetWarningThresholdHours = util.Ptr(warnHours)
				}
				if f.Changed("warn-amount") {
					s.BudgetWarningThresholdAmount = util.Ptr(warnAmount)
				}
				if err := a.eng.UpdateSettings(ctx, s); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings saved.")
				return nil
			})
		},
	}
	set.Flags().BoolVar(&interrupts, "interrupts", true, "enable still-working prompts")
	set.Flags().DurationVar(&interval, "interval", 0, "time between prompts")
	set.Flags().DurationVar(&grace, "grace", 0, "time to answer a prompt before auto-stop")
	set.Flags().IntVar(&work, "work", 0, "default pomodoro work minutes")
	set.Flags().IntVar(&brk, "break", 0, "default pomodoro break minutes")
	set.Flags().Float64Var(&warnHours, "warn-hours", 0, "warn when this many budget hours remain")
	set.Flags().Float64Var(&warnAmount, "warn-amount", 0, "warn when this much budget amount remains")

	settings.AddCommand(show, set)
	return settings
}
