//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"

	"github.com/stigoleg/pad-alive/internal/logging"
)

// Backend names.
const (
	BackendAuto        = "auto"
	BackendWayland     = "wayland"
	BackendPortal      = "portal"
	BackendScreenSaver = "screensaver"
)

var (
	// ErrNotHeld is returned by Destroy when no inhibitor is held.
	ErrNotHeld = errors.New("no idle inhibitor held")

	// ErrAlreadyHeld is returned by Create when an inhibitor is held.
	ErrAlreadyHeld = errors.New("idle inhibitor already held")

	// ErrUnknownBackend is returned for a backend name Connect does not know.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Backend is a connection that can hold one idle inhibitor.
type Backend interface {
	Name() string
	Create() error
	Destroy() error
	Held() bool
	Service() error
	Done() <-chan struct{}
	Close() error
}

type connector func(ctx context.Context) (Backend, error)

var connectors = map[string]connector{
	BackendWayland: func(ctx context.Context) (Backend, error) {
		return ConnectWayland(ctx, "")
	},
	BackendPortal: func(ctx context.Context) (Backend, error) {
		return NewPortalInhibitor(ctx)
	},
	BackendScreenSaver: func(ctx context.Context) (Backend, error) {
		return NewScreenSaverInhibitor(ctx)
	},
}

// Connect opens the named backend. BackendAuto tries the candidates from
// AutoOrder until one connects.
func Connect(ctx context.Context, name string) (Backend, error) {
	if name != BackendAuto {
		connect, ok := connectors[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
		}
		b, err := connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s backend: %w", name, err)
		}
		return b, nil
	}

	log := logging.FromContext(ctx)
	displayServer := DetectDisplayServer()
	log.Debug().
		Str("display_server", displayServer).
		Str("desktop", DetectDesktopEnvironment()).
		Msg("backend: selecting automatically")

	var errs []error
	for _, candidate := range AutoOrder(displayServer) {
		b, err := connectors[candidate](ctx)
		if err == nil {
			log.Info().Str("backend", candidate).Msg("backend: connected")
			return b, nil
		}
		log.Debug().Err(err).Str("backend", candidate).Msg("backend: unavailable")
		errs = append(errs, fmt.Errorf("%s backend: %w", candidate, err))
	}
	return nil, fmt.Errorf("no idle inhibit backend available: %w", errors.Join(errs...))
}

// AutoOrder returns the backends BackendAuto tries, in order. The native
// Wayland protocol is only attempted inside a Wayland session.
func AutoOrder(displayServer string) []string {
	if displayServer == DisplayServerWayland {
		return []string{BackendWayland, BackendPortal, BackendScreenSaver}
	}
	return []string{BackendPortal, BackendScreenSaver}
}
