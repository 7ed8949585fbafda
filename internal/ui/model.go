package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stigoleg/pad-alive/internal/keepalive"
)

const barWidth = 20

// Model holds what the monitor shows: the device and backend in use and the
// last status reported by the loop.
type Model struct {
	Backend    string
	DevicePath string
	DeviceName string

	Status    keepalive.Status
	HasStatus bool
	Notice    string
	Now       time.Time
	Err       error
	ShowHelp  bool
	Quitting  bool

	keys KeyMap
	help help.Model
	bar  progress.Model
}

// NewModel returns a monitor for the given backend and device.
func NewModel(backend, devicePath, deviceName string) Model {
	return Model{
		Backend:    backend,
		DevicePath: devicePath,
		DeviceName: deviceName,
		Now:        time.Now(),
		keys:       DefaultKeys(),
		help:       NewHelpModel(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	newModel, cmd := Update(msg, m)
	return newModel, cmd
}

// View implements tea.Model
func (m Model) View() string {
	return View(m)
}

// Idle returns how long the controller has been idle.
func (m Model) Idle() time.Duration {
	if !m.HasStatus {
		return 0
	}
	idle := m.Now.Sub(m.Status.LastActiveAt)
	if idle < 0 {
		return 0
	}
	return idle
}

// UntilRelease returns how long until an Active controller turns Inactive
// if it stays idle.
func (m Model) UntilRelease() time.Duration {
	if !m.HasStatus || m.Status.State != keepalive.Active {
		return 0
	}
	remaining := keepalive.InactivityThreshold - m.Idle()
	if remaining < 0 {
		return 0
	}
	return remaining
}
