package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/akyairhashvil/timekeep/internal/config"
	"github.com/akyairhashvil/timekeep/internal/models"
)

func truncateLabel(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if ansi.StringWidth(text) <= max {
		return text
	}
	return ansi.Truncate(text, max, config.TruncationSuffix)
}

func (m WatchModel) View() string {
	t := CurrentTheme
	var lines []string
	lines = append(lines, t.Header.Render("timekeep")+" "+t.Dim.Render("v"+versionLabel()))

	switch {
	case !m.loaded:
		lines = append(lines, t.Dim.Render("Loading..."))
	case m.view == nil:
		lines = append(lines, t.Dim.Render("No timer running. Start one with `timekeep start`."))
	default:
		lines = append(lines, m.timerLines()...)
	}

	if m.status != "" {
		lines = append(lines, "", t.Highlight.Render(m.status))
	}
	if m.err != nil {
		lines = append(lines, "", t.Error.Render("Error: "+m.err.Error()))
	}
	lines = append(lines, "", t.Dim.Render(m.footer()))

	if m.width > 0 {
		max := m.width - 4
		for i, line := range lines {
			lines[i] = truncateLabel(line, max)
		}
	}
	body := strings.Join(lines, "\n")
	if m.width > 0 && m.width < config.MinViewWidth {
		return body
	}
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	return t.Base.Render(box.Render(body))
}

func (m WatchModel) timerLines() []string {
	t := CurrentTheme
	v := m.view
	now := m.now
	if now.Before(v.At) {
		now = v.At
	}
	elapsed := now.Sub(v.StartedAt)
	lines := []string{
		t.Running.Render("Running "+FormatClock(elapsed)) + t.Dim.Render(fmt.Sprintf("  project %d", v.ProjectID)),
	}

	if p := v.Pomodoro; p != nil {
		total := p.PhaseDuration(p.Phase)
		remaining := p.TransitionAt.Sub(now)
		style := t.Running
		label := "Work"
		if p.Phase == models.PhaseBreak {
			style, label = t.Break, "Break"
		}
		lines = append(lines,
			style.Render(fmt.Sprintf("%s %d", label, p.CurrentCycle))+t.Dim.Render(fmt.Sprintf("  %s left  (%d done)", FormatTimeRemaining(remaining), p.CompletedCycles)),
			m.progress.ViewAs(fraction(total-remaining, total)),
		)
	}

	if st, ok := v.AwaitingAck(); ok {
		grace := st.Deadline.Sub(st.ShownAt)
		left := st.Deadline.Sub(now)
		lines = append(lines,
			"",
			t.Prompt.Render("Still working?")+" "+t.Warning.Render(FormatTimeRemaining(left)+" until auto-stop"),
			m.progress.ViewAs(fraction(grace-left, grace)),
		)
	} else if next, ok := v.NextInterruptAt(); ok {
		lines = append(lines, t.Dim.Render("Next check-in in "+FormatDuration(next.Sub(now).Truncate(time.Second))))
	}

	if v.BudgetWarningSentAt != nil {
		lines = append(lines, t.Warning.Render("Project budget is running low."))
	}
	return lines
}

func (m WatchModel) footer() string {
	if m.view == nil {
		return "r refresh · q quit"
	}
	if _, ok := m.view.AwaitingAck(); ok {
		return "c continue · n stop · q quit"
	}
	return "s stop · r refresh · q quit"
}

func fraction(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(part) / float64(total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
