package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stigoleg/pad-alive/internal/keepalive"
)

// refreshInterval is how often the idle counters are redrawn between loop
// updates.
const refreshInterval = 100 * time.Millisecond

// tickMsg is sent when the refresh timer fires
type tickMsg time.Time

// Update handles messages and updates the model accordingly.
func Update(msg tea.Msg, m Model) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.ToggleHelp):
			m.ShowHelp = !m.ShowHelp
			m.help.ShowAll = m.ShowHelp
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case StatusMsg:
		m.Status = keepalive.Status(msg)
		m.HasStatus = true
		if m.Status.At.After(m.Now) {
			m.Now = m.Status.At
		}

	case NoticeMsg:
		m.Notice = msg.At.Format(time.TimeOnly) + " " + msg.Notice.String()

	case DoneMsg:
		m.Err = msg.Err
		m.Quitting = true
		return m, tea.Quit

	case tickMsg:
		m.Now = time.Time(msg)
		return m, tick()
	}

	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
