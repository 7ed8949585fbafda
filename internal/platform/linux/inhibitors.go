//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/stigoleg/pad-alive/internal/logging"
)

// Reason shown by the desktop for the inhibitors held over D-Bus.
const inhibitReason = "Game controller in use"

const applicationName = "padalive"

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalInterface = "org.freedesktop.portal.Inhibit"
	requestIface    = "org.freedesktop.portal.Request"

	// Idle bit of the portal Inhibit flags.
	portalFlagIdle = 8

	screenSaverDest  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = "/org/freedesktop/ScreenSaver"
	screenSaverIface = "org.freedesktop.ScreenSaver"

	dbusUnknownObject = "org.freedesktop.DBus.Error.UnknownObject"
	dbusUnknownMethod = "org.freedesktop.DBus.Error.UnknownMethod"
)

// ErrBusDisconnected is returned once the session bus connection is gone.
var ErrBusDisconnected = errors.New("session bus disconnected")

// busCaller is the subset of *dbus.Conn the inhibitors use.
type busCaller interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Connected() bool
	Context() context.Context
	Close() error
}

// sessionBus carries the connection liveness shared by the D-Bus
// inhibitors.
type sessionBus struct {
	conn busCaller
	log  *zerolog.Logger
}

func connectSessionBus(ctx context.Context) (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return conn, nil
}

// Service reports a lost bus connection. It never blocks.
func (b *sessionBus) Service() error {
	if !b.conn.Connected() {
		return ErrBusDisconnected
	}
	return nil
}

// Done is closed once the bus connection has been closed.
func (b *sessionBus) Done() <-chan struct{} { return b.conn.Context().Done() }

// Close disconnects from the session bus.
func (b *sessionBus) Close() error { return b.conn.Close() }

// PortalInhibitor holds an idle inhibition through the XDG desktop portal.
type PortalInhibitor struct {
	sessionBus
	handle dbus.ObjectPath
}

// NewPortalInhibitor connects to the session bus and checks that the
// Inhibit portal is available.
func NewPortalInhibitor(ctx context.Context) (*PortalInhibitor, error) {
	conn, err := connectSessionBus(ctx)
	if err != nil {
		return nil, err
	}
	p, err := newPortalInhibitor(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPortalInhibitor(ctx context.Context, conn busCaller) (*PortalInhibitor, error) {
	log := logging.FromContext(logging.WithComponent(ctx, "dbus"))

	var version uint32
	err := conn.Object(portalDest, portalPath).
		Call("org.freedesktop.DBus.Properties.Get", 0, portalInterface, "version").
		Store(&version)
	if err != nil {
		return nil, fmt.Errorf("inhibit portal not available: %w", err)
	}
	log.Debug().Uint32("version", version).Msg("dbus: inhibit portal available")

	return &PortalInhibitor{sessionBus: sessionBus{conn: conn, log: log}}, nil
}

// Name returns the backend name.
func (p *PortalInhibitor) Name() string { return BackendPortal }

// Create asks the portal to inhibit idle.
func (p *PortalInhibitor) Create() error {
	if p.handle != "" {
		return ErrAlreadyHeld
	}

	options := map[string]dbus.Variant{
		"reason": dbus.MakeVariant(inhibitReason),
	}
	var handle dbus.ObjectPath
	err := p.conn.Object(portalDest, portalPath).Call(portalInterface+".Inhibit", 0,
		"", // window identifier (empty for non-sandboxed)
		uint32(portalFlagIdle),
		options,
	).Store(&handle)
	if err != nil {
		return fmt.Errorf("portal inhibit: %w", err)
	}

	p.handle = handle
	p.log.Info().Str("handle", string(handle)).Msg("Idle inhibitor created successfully")
	return nil
}

// Destroy closes the portal request holding the inhibition.
func (p *PortalInhibitor) Destroy() error {
	if p.handle == "" {
		return ErrNotHeld
	}
	handle := p.handle
	p.handle = ""

	err := p.conn.Object(portalDest, handle).Call(requestIface+".Close", 0).Err
	if err != nil && !isGone(err) {
		return fmt.Errorf("portal release: %w", err)
	}
	// Some portals complete the request immediately, which removes the
	// object and the inhibition with it.
	p.log.Info().Str("handle", string(handle)).Msg("Idle inhibitor destroyed successfully")
	return nil
}

// Held reports whether a portal request is open.
func (p *PortalInhibitor) Held() bool { return p.handle != "" }

// ScreenSaverInhibitor holds an idle inhibition through the
// org.freedesktop.ScreenSaver interface.
type ScreenSaverInhibitor struct {
	sessionBus
	cookie uint32
}

// NewScreenSaverInhibitor connects to the session bus and checks that a
// screensaver service owns org.freedesktop.ScreenSaver.
func NewScreenSaverInhibitor(ctx context.Context) (*ScreenSaverInhibitor, error) {
	conn, err := connectSessionBus(ctx)
	if err != nil {
		return nil, err
	}

	var hasOwner bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, screenSaverDest).Store(&hasOwner)
	if err == nil && !hasOwner {
		err = fmt.Errorf("%s has no owner", screenSaverDest)
	}
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("screensaver service not available: %w", err)
	}

	return newScreenSaverInhibitor(ctx, conn), nil
}

func newScreenSaverInhibitor(ctx context.Context, conn busCaller) *ScreenSaverInhibitor {
	return &ScreenSaverInhibitor{
		sessionBus: sessionBus{conn: conn, log: logging.FromContext(logging.WithComponent(ctx, "dbus"))},
	}
}

// Name returns the backend name.
func (s *ScreenSaverInhibitor) Name() string { return BackendScreenSaver }

// Create calls Inhibit and keeps the returned cookie.
func (s *ScreenSaverInhibitor) Create() error {
	if s.cookie != 0 {
		return ErrAlreadyHeld
	}

	var cookie uint32
	err := s.conn.Object(screenSaverDest, screenSaverPath).
		Call(screenSaverIface+".Inhibit", 0, applicationName, inhibitReason).
		Store(&cookie)
	if err != nil {
		return fmt.Errorf("screensaver inhibit: %w", err)
	}
	if cookie == 0 {
		return fmt.Errorf("screensaver inhibit: received invalid cookie 0")
	}

	s.cookie = cookie
	s.log.Info().Uint32("cookie", cookie).Msg("Idle inhibitor created successfully")
	return nil
}

// Destroy calls UnInhibit with the held cookie.
func (s *ScreenSaverInhibitor) Destroy() error {
	if s.cookie == 0 {
		return ErrNotHeld
	}
	cookie := s.cookie
	s.cookie = 0

	err := s.conn.Object(screenSaverDest, screenSaverPath).
		Call(screenSaverIface+".UnInhibit", 0, cookie).Err
	if err != nil {
		return fmt.Errorf("screensaver uninhibit: %w", err)
	}
	s.log.Info().Uint32("cookie", cookie).Msg("Idle inhibitor destroyed successfully")
	return nil
}

// Held reports whether a cookie is held.
func (s *ScreenSaverInhibitor) Held() bool { return s.cookie != 0 }

func isGone(err error) bool {
	var name string
	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
		name = dbusErr.Name
	case errors.As(err, &dbusErrPtr):
		name = dbusErrPtr.Name
	}
	return name == dbusUnknownObject || name == dbusUnknownMethod
}
