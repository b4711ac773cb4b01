package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/engine"
)

// WatchModel shows the owner's running timer, keeps it alive with periodic
// heartbeats and answers interrupt prompts.
type WatchModel struct {
	ctx      context.Context
	svc      TimerService
	ownerID  string
	events   <-chan engine.Event
	view     *engine.TimerView
	loaded   bool
	now      time.Time
	lastBeat time.Time
	progress progress.Model
	width    int
	status   string
	err      error
}

func NewWatchModel(ctx context.Context, svc TimerService, ownerID string, events <-chan engine.Event) WatchModel {
	m := WatchModel{
		ctx:      ctx,
		svc:      svc,
		ownerID:  ownerID,
		events:   events,
		progress: progress.New(progress.WithDefaultGradient()),
	}
	m.progress.Width = config.ProgressWidth
	return m
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(loadTimerCmd(m.ctx, m.svc, m.ownerID), tickCmd(), waitForEvent(m.events))
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		target := msg.Width - 20
		if target > config.ProgressWidth {
			target = config.ProgressWidth
		}
		if target < 10 {
			target = 10
		}
		m.progress.Width = target
		return m, nil

	case TickMsg:
		m.now = time.Time(msg)
		if m.view != nil && m.now.Sub(m.lastBeat) >= config.HeartbeatEvery {
			m.lastBeat = m.now
			return m, tea.Batch(heartbeatCmd(m.ctx, m.svc, m.ownerID), tickCmd())
		}
		return m, tickCmd()

	case timerLoadedMsg:
		m.loaded = true
		m.err = msg.err
		m.view = msg.view
		if msg.view != nil && m.lastBeat.IsZero() {
			m.lastBeat = msg.view.LastHeartbeatAt
		}
		if m.now.IsZero() && msg.view != nil {
			m.now = msg.view.At
		}
		return m, nil

	case eventMsg:
		if msg.Type == engine.EventStopped && msg.Entry != nil && msg.Entry.IsOverrun {
			m.status = "Timer went stale and was recorded as overrun."
		}
		return m, tea.Batch(loadTimerCmd(m.ctx, m.svc, m.ownerID), waitForEvent(m.events))

	case actionDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, engine.ErrTimerNotFound) {
			m.err = msg.err
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, loadTimerCmd(m.ctx, m.svc, m.ownerID)

	case progress.FrameMsg:
		newProg, cmd := m.progress.Update(msg)
		m.progress = newProg.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "r":
		return m, loadTimerCmd(m.ctx, m.svc, m.ownerID)
	}
	if m.view == nil {
		return m, nil
	}
	_, awaiting := m.view.AwaitingAck()
	switch msg.String() {
	case "c", "y", "enter":
		if awaiting {
			return m, ackCmd(m.ctx, m.svc, m.ownerID, true)
		}
	case "n":
		if awaiting {
			return m, ackCmd(m.ctx, m.svc, m.ownerID, false)
		}
	case "s":
		return m, stopCmd(m.ctx, m.svc, m.ownerID)
	}
	return m, nil
}
