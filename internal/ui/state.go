package ui

import (
	"time"

	"github.com/stigoleg/pad-alive/internal/keepalive"
)

// StatusMsg carries the loop status after a tick.
type StatusMsg keepalive.Status

// NoticeMsg carries an activity notification.
type NoticeMsg struct {
	Notice keepalive.Notice
	At     time.Time
}

// DoneMsg reports that the loop has stopped. Err is nil after a clean
// shutdown.
type DoneMsg struct {
	Err error
}
