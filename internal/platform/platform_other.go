//go:build !linux

package platform

import "context"

// Backend names accepted by Connect.
const (
	BackendAuto        = "auto"
	BackendWayland     = "wayland"
	BackendPortal      = "portal"
	BackendScreenSaver = "screensaver"
)

// Backends lists every backend name Connect accepts.
func Backends() []string {
	return []string{BackendAuto, BackendWayland, BackendPortal, BackendScreenSaver}
}

// Connect always fails outside Linux.
func Connect(ctx context.Context, name string) (Backend, error) {
	return nil, ErrUnsupported
}
