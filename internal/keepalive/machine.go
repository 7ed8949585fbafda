// Package keepalive holds the controller activity state machine and the
// event loop that drives it.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stigoleg/pad-alive/internal/logging"
)

// Timing constants.
const (
	// InactivityThreshold is how long the controller must stay idle before
	// the inhibitor is released.
	InactivityThreshold = 10 * time.Second

	// TickInterval is the fixed cadence of the polling loop and the lower
	// bound between evaluations of the waiting loop.
	TickInterval = 10 * time.Millisecond
)

// State is the controller activity state.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Inhibitor owns one idle-inhibitor resource. Create is only called when
// nothing is held and Destroy only when something is.
type Inhibitor interface {
	Create() error
	Destroy() error
	Held() bool
}

// Notice is a user-visible activity notification.
type Notice int

const (
	NoticeActive Notice = iota
	NoticeInactive
)

func (n Notice) String() string {
	if n == NoticeActive {
		return "controller is active"
	}
	return "controller is inactive"
}

// Machine tracks controller activity and holds the inhibitor exactly while
// the controller is Active. It is not safe for concurrent use.
type Machine struct {
	inhibitor     Inhibitor
	threshold     time.Duration
	state         State
	lastActiveAt  time.Time
	noticePending bool
	onNotice      func(Notice, time.Time)
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithNoticeFunc registers a callback for activity notifications.
func WithNoticeFunc(fn func(Notice, time.Time)) MachineOption {
	return func(m *Machine) { m.onNotice = fn }
}

// NewMachine returns an Inactive machine whose idle period starts at start.
func NewMachine(start time.Time, inhibitor Inhibitor, opts ...MachineOption) *Machine {
	m := &Machine{
		inhibitor:     inhibitor,
		threshold:     InactivityThreshold,
		state:         Inactive,
		lastActiveAt:  start,
		noticePending: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tick feeds one classifier result observed at now. The inhibitor is only
// touched on a state change.
//
// A failed Create leaves the machine Inactive. A failed Destroy still
// leaves it Inactive, since the handle cannot be used again either way.
func (m *Machine) Tick(ctx context.Context, now time.Time, activeNow bool) error {
	log := logging.FromContext(ctx)

	if activeNow {
		if now.After(m.lastActiveAt) {
			m.lastActiveAt = now
		}
		m.noticePending = false
		if m.state == Active {
			return nil
		}

		if err := m.inhibitor.Create(); err != nil {
			return fmt.Errorf("create idle inhibitor: %w", err)
		}
		m.state = Active
		log.Info().Msg(NoticeActive.String())
		m.notify(NoticeActive, now)
		return nil
	}

	if now.Sub(m.lastActiveAt) < m.threshold {
		return nil
	}

	switch {
	case m.state == Active:
		m.state = Inactive
		err := m.inhibitor.Destroy()
		log.Info().Dur("idle", now.Sub(m.lastActiveAt)).Msg(NoticeInactive.String())
		m.notify(NoticeInactive, now)
		if err != nil {
			return fmt.Errorf("destroy idle inhibitor: %w", err)
		}
	case m.noticePending:
		m.noticePending = false
		log.Info().Msg(NoticeInactive.String())
		m.notify(NoticeInactive, now)
	}
	return nil
}

// NextDeadline returns when the next time-driven transition or notice is
// due. ok is false when only new input can change anything.
func (m *Machine) NextDeadline() (deadline time.Time, ok bool) {
	if m.state == Active || m.noticePending {
		return m.lastActiveAt.Add(m.threshold), true
	}
	return time.Time{}, false
}

// Release drops a held inhibitor during shutdown. It never destroys a
// handle that was not created.
func (m *Machine) Release(ctx context.Context) error {
	m.state = Inactive
	if !m.inhibitor.Held() {
		return nil
	}
	if err := m.inhibitor.Destroy(); err != nil {
		return fmt.Errorf("release idle inhibitor: %w", err)
	}
	logging.FromContext(ctx).Debug().Msg("keepalive: inhibitor released on shutdown")
	return nil
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Snapshot is a point-in-time view of a Machine.
type Snapshot struct {
	State        State
	LastActiveAt time.Time
}

// Snapshot returns the current state and last activity time.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{State: m.state, LastActiveAt: m.lastActiveAt}
}

// LastActiveAt returns when activity was last observed.
func (m *Machine) LastActiveAt() time.Time { return m.lastActiveAt }

func (m *Machine) notify(n Notice, at time.Time) {
	if m.onNotice != nil {
		m.onNotice(n, at)
	}
}

// Error taxonomy. Setup failures happen before the loop starts; runtime
// failures end it.
var (
	ErrSetup   = errors.New("setup failed")
	ErrRuntime = errors.New("runtime failure")
)
