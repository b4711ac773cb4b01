package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/akyairhashvil/timekeep/internal/engine"
)

// TimerService is the slice of the engine the watch view drives.
type TimerService interface {
	GetRunning(ctx context.Context, ownerID string) (*engine.TimerView, error)
	Heartbeat(ctx context.Context, ownerID string) error
	AckInterrupt(ctx context.Context, ownerID string, cont bool) error
	Stop(ctx context.Context, ownerID string, opts engine.StopOptions) (engine.StopResult, error)
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return TickMsg(t) })
}

type timerLoadedMsg struct {
	view *engine.TimerView
	err  error
}

type eventMsg engine.Event

type actionDoneMsg struct {
	status string
	err    error
}

func loadTimerCmd(ctx context.Context, svc TimerService, ownerID string) tea.Cmd {
	return func() tea.Msg {
		view, err := svc.GetRunning(ctx, ownerID)
		return timerLoadedMsg{view: view, err: err}
	}
}

func heartbeatCmd(ctx context.Context, svc TimerService, ownerID string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Heartbeat(ctx, ownerID); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{}
	}
}

func ackCmd(ctx context.Context, svc TimerService, ownerID string, cont bool) tea.Cmd {
	return func() tea.Msg {
		if err := svc.AckInterrupt(ctx, ownerID, cont); err != nil {
			return actionDoneMsg{err: err}
		}
		if cont {
			return actionDoneMsg{status: "Continuing."}
		}
		return actionDoneMsg{status: "Timer stopped."}
	}
}

func stopCmd(ctx context.Context, svc TimerService, ownerID string) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.Stop(ctx, ownerID, engine.StopOptions{})
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if !res.Success {
			if res.EntryID != 0 {
				return actionDoneMsg{status: "Already ended (" + string(res.Source) + "): " + FormatDuration(time.Duration(res.Seconds)*time.Second) + " recorded."}
			}
			return actionDoneMsg{status: "No timer was running."}
		}
		return actionDoneMsg{status: "Stopped: " + FormatDuration(time.Duration(res.Seconds)*time.Second) + " recorded."}
	}
}

// waitForEvent blocks on the subscription; a closed channel ends the loop.
func waitForEvent(events <-chan engine.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}
