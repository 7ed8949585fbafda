//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"github.com/rs/zerolog"

	"github.com/stigoleg/pad-alive/internal/logging"
)

const compositorInterfaceName = "wl_compositor"

// Highest wl_compositor version the session binds.
const maxCompositorVersion = 4

var (
	// ErrMissingGlobal is returned when the compositor does not advertise a
	// required global.
	ErrMissingGlobal = errors.New("required wayland global not advertised")

	// ErrProtocol wraps a wl_display.error sent by the compositor.
	ErrProtocol = errors.New("wayland protocol error")
)

// WaylandSession is a compositor connection holding a surface that an idle
// inhibitor can be attached to. The Inhibitor methods belong to one
// goroutine. Once setup finishes, only the dispatcher goroutine touches the
// go-wayland context; the other methods hand it their requests.
type WaylandSession struct {
	display    *client.Display
	registry   *client.Registry
	compositor *client.Compositor
	manager    *IdleInhibitManager
	surface    *client.Surface
	inhibitor  *IdleInhibitor
	commit     func() error

	log *zerolog.Logger

	mu     sync.Mutex
	err    error
	closed bool

	requests chan waylandRequest

	// wake is the dispatcher's pending callback. wakeID is its id while no
	// caller has sent the sync for it yet, and 0 otherwise.
	wake   *client.Callback
	wakeMu sync.Mutex
	wakeID uint32

	done      chan struct{}
	failOnce  sync.Once
	closeOnce sync.Once
}

type waylandRequest struct {
	fn     func() error
	result chan error
}

// ConnectWayland connects to the compositor named by name, or the one in
// WAYLAND_DISPLAY when name is empty, binds the compositor and idle-inhibit
// manager globals and creates the surface.
func ConnectWayland(ctx context.Context, name string) (*WaylandSession, error) {
	log := logging.FromContext(logging.WithComponent(ctx, "wayland"))

	display, err := client.Connect(name)
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}

	s := &WaylandSession{
		display:  display,
		log:      log,
		requests: make(chan waylandRequest, 1),
		done:     make(chan struct{}),
	}
	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		s.setErr(fmt.Errorf("%w: code %d: %s", ErrProtocol, e.Code, e.Message))
	})

	if err := s.bindGlobals(); err != nil {
		_ = display.Context().Close()
		return nil, err
	}

	surface, err := s.compositor.CreateSurface()
	if err != nil {
		_ = display.Context().Close()
		return nil, fmt.Errorf("create surface: %w", err)
	}
	s.surface = surface
	s.commit = surface.Commit
	if err := surface.Commit(); err != nil {
		_ = display.Context().Close()
		return nil, fmt.Errorf("commit surface: %w", err)
	}

	go s.dispatch()

	log.Debug().Msg("wayland: connected")
	return s, nil
}

func (s *WaylandSession) bindGlobals() error {
	registry, err := s.display.GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	s.registry = registry

	var bindErr error
	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case compositorInterfaceName:
			compositor := client.NewCompositor(s.display.Context())
			version := min(e.Version, maxCompositorVersion)
			if err := registry.Bind(e.Name, e.Interface, version, compositor); err != nil {
				bindErr = errors.Join(bindErr, fmt.Errorf("bind %s: %w", e.Interface, err))
				return
			}
			s.compositor = compositor
		case IdleInhibitManagerInterfaceName:
			manager := NewIdleInhibitManager(s.display.Context())
			if err := registry.Bind(e.Name, e.Interface, 1, manager); err != nil {
				bindErr = errors.Join(bindErr, fmt.Errorf("bind %s: %w", e.Interface, err))
				return
			}
			s.manager = manager
		}
		s.log.Trace().Str("interface", e.Interface).Uint32("version", e.Version).Msg("wayland: global")
	})

	if err := s.roundtrip(); err != nil {
		return err
	}
	if bindErr != nil {
		return bindErr
	}

	var missing []string
	if s.compositor == nil {
		missing = append(missing, compositorInterfaceName)
	}
	if s.manager == nil {
		missing = append(missing, IdleInhibitManagerInterfaceName)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingGlobal, missing)
	}
	return nil
}

// roundtrip blocks until the compositor has processed every request sent so
// far. Only used before the dispatcher starts.
func (s *WaylandSession) roundtrip() error {
	callback, err := s.display.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	defer func() { _ = callback.Destroy() }()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := s.display.Context().Dispatch(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
		if err := s.Service(); err != nil {
			return err
		}
	}
	return nil
}

func (s *WaylandSession) dispatch() {
	for {
		s.arm()
		s.runRequests()
		if err := s.display.Context().Dispatch(); err != nil {
			s.fail(fmt.Errorf("dispatch: %w", err))
			return
		}
		if err := s.Service(); err != nil {
			s.fail(err)
			return
		}
	}
}

// arm registers a fresh wake callback unless one is still pending. The
// compositor answers a sync for it with done, which unblocks Dispatch.
func (s *WaylandSession) arm() {
	if s.wake != nil {
		return
	}
	wake := client.NewCallback(s.display.Context())
	wake.SetDoneHandler(func(client.CallbackDoneEvent) {
		_ = wake.Destroy()
		s.wake = nil
	})
	s.wake = wake

	s.wakeMu.Lock()
	s.wakeID = wake.ID()
	s.wakeMu.Unlock()
}

func (s *WaylandSession) runRequests() {
	for {
		select {
		case req := <-s.requests:
			req.result <- req.fn()
		default:
			return
		}
	}
}

// call runs fn on the dispatcher goroutine and waits for its result.
func (s *WaylandSession) call(fn func() error) error {
	req := waylandRequest{fn: fn, result: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return s.stopped()
	}

	s.wakeMu.Lock()
	id := s.wakeID
	s.wakeID = 0
	s.wakeMu.Unlock()
	// With no id to claim, the dispatcher has not blocked yet and will see
	// the request before it does.
	if id != 0 {
		if err := writeSync(s.display, id); err != nil {
			s.log.Debug().Err(err).Msg("wayland: wake failed")
		}
	}

	select {
	case err := <-req.result:
		return err
	case <-s.done:
		select {
		case err := <-req.result:
			return err
		default:
			return s.stopped()
		}
	}
}

func (s *WaylandSession) stopped() error {
	if err := s.Service(); err != nil {
		return err
	}
	return net.ErrClosed
}

// Name returns the backend name.
func (s *WaylandSession) Name() string { return BackendWayland }

// Service reports a broken connection or a protocol error. It never blocks.
func (s *WaylandSession) Service() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the connection has failed.
func (s *WaylandSession) Done() <-chan struct{} { return s.done }

// Create attaches a new idle inhibitor to the surface.
func (s *WaylandSession) Create() error {
	if s.inhibitor != nil {
		return ErrAlreadyHeld
	}
	return s.call(s.createInhibitor)
}

func (s *WaylandSession) createInhibitor() error {
	inhibitor, err := s.manager.CreateInhibitor(s.surface)
	if err != nil {
		_ = inhibitor.Destroy()
		return fmt.Errorf("create inhibitor: %w", err)
	}
	if err := s.commit(); err != nil {
		_ = inhibitor.Destroy()
		return fmt.Errorf("commit surface: %w", err)
	}
	s.inhibitor = inhibitor
	s.log.Info().Msg("Idle inhibitor created successfully")
	return nil
}

// Destroy removes the held idle inhibitor.
func (s *WaylandSession) Destroy() error {
	if s.inhibitor == nil {
		return ErrNotHeld
	}
	return s.call(s.destroyInhibitor)
}

func (s *WaylandSession) destroyInhibitor() error {
	err := s.inhibitor.Destroy()
	s.inhibitor = nil
	if err != nil {
		return fmt.Errorf("destroy inhibitor: %w", err)
	}
	if err := s.commit(); err != nil {
		return fmt.Errorf("commit surface: %w", err)
	}
	s.log.Info().Msg("Idle inhibitor destroyed successfully")
	return nil
}

// Held reports whether an inhibitor is currently attached.
func (s *WaylandSession) Held() bool { return s.inhibitor != nil }

// Close destroys the surface and globals and disconnects. A held inhibitor
// is not released first; the compositor drops it with the connection.
func (s *WaylandSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		var errs []error
		select {
		case <-s.done:
			// Dispatcher is gone and so is the connection.
		default:
			errs = append(errs, s.call(s.destroyObjects))
		}
		errs = append(errs, s.display.Context().Close())
		err = errors.Join(errs...)
		s.log.Debug().Msg("wayland: disconnected")
	})
	return err
}

func (s *WaylandSession) destroyObjects() error {
	var errs []error
	if s.surface != nil {
		errs = append(errs, s.surface.Destroy())
	}
	if s.manager != nil {
		errs = append(errs, s.manager.Destroy())
	}
	if s.compositor != nil {
		errs = append(errs, s.compositor.Destroy())
	}
	if s.registry != nil {
		errs = append(errs, s.registry.Destroy())
	}
	return errors.Join(errs...)
}

func (s *WaylandSession) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *WaylandSession) fail(err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	s.failOnce.Do(func() {
		s.setErr(err)
		if !closed {
			s.log.Error().Err(err).Msg("wayland: connection lost")
		}
		close(s.done)
	})
}
