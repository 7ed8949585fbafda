//go:build linux

package platform

import (
	"context"

	"github.com/stigoleg/pad-alive/internal/platform/linux"
)

// Backend names accepted by Connect.
const (
	BackendAuto        = linux.BackendAuto
	BackendWayland     = linux.BackendWayland
	BackendPortal      = linux.BackendPortal
	BackendScreenSaver = linux.BackendScreenSaver
)

// Backends lists every backend name Connect accepts.
func Backends() []string {
	return []string{BackendAuto, BackendWayland, BackendPortal, BackendScreenSaver}
}

// Connect opens the named idle inhibit backend.
func Connect(ctx context.Context, name string) (Backend, error) {
	return linux.Connect(ctx, name)
}
