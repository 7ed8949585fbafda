// Package platform selects the idle inhibit backend for the running system.
package platform

import "errors"

// Backend holds at most one idle inhibitor on a connection to the desktop.
type Backend interface {
	// Name identifies the backend in logs and the monitor.
	Name() string

	// Create takes the inhibitor. Only called when none is held.
	Create() error
	// Destroy releases the inhibitor. Only called when one is held.
	Destroy() error
	Held() bool

	// Service reports a broken connection without blocking.
	Service() error
	// Done is closed once the connection has failed.
	Done() <-chan struct{}

	Close() error
}

// ErrUnsupported is returned on systems without an idle inhibit backend.
var ErrUnsupported = errors.New("unsupported platform")
