//go:build linux

package linux

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type busCall struct {
	dest   string
	path   dbus.ObjectPath
	method string
	args   []interface{}
}

// fakeBus records method calls and answers them from replies.
type fakeBus struct {
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	calls     []busCall
	replies   map[string]*dbus.Call
}

func newFakeBus() *fakeBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeBus{
		connected: true,
		ctx:       ctx,
		cancel:    cancel,
		replies:   map[string]*dbus.Call{},
	}
}

func (b *fakeBus) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: b, dest: dest, path: path}
}

func (b *fakeBus) Connected() bool { return b.connected }

func (b *fakeBus) Context() context.Context { return b.ctx }

func (b *fakeBus) Close() error {
	b.connected = false
	b.cancel()
	return nil
}

func (b *fakeBus) reply(method string, body ...interface{}) {
	b.replies[method] = &dbus.Call{Body: body}
}

func (b *fakeBus) fail(method string, err error) {
	b.replies[method] = &dbus.Call{Err: err}
}

func (b *fakeBus) methods() []string {
	var out []string
	for _, c := range b.calls {
		out = append(out, c.method)
	}
	return out
}

type fakeObject struct {
	dbus.BusObject
	bus  *fakeBus
	dest string
	path dbus.ObjectPath
}

func (o *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	o.bus.calls = append(o.bus.calls, busCall{dest: o.dest, path: o.path, method: method, args: args})
	if reply, ok := o.bus.replies[method]; ok {
		return reply
	}
	return &dbus.Call{}
}

func TestPortalInhibitor(t *testing.T) {
	bus := newFakeBus()
	bus.reply("org.freedesktop.DBus.Properties.Get", uint32(3))
	bus.reply(portalInterface+".Inhibit", dbus.ObjectPath("/org/freedesktop/portal/desktop/request/1_42/t"))

	p, err := newPortalInhibitor(context.Background(), bus)
	require.NoError(t, err)
	assert.Equal(t, BackendPortal, p.Name())

	require.NoError(t, p.Create())
	assert.True(t, p.Held())
	assert.ErrorIs(t, p.Create(), ErrAlreadyHeld)

	inhibit := bus.calls[1]
	assert.Equal(t, portalDest, inhibit.dest)
	require.Len(t, inhibit.args, 3)
	assert.Equal(t, "", inhibit.args[0])
	assert.Equal(t, uint32(8), inhibit.args[1], "idle flag only")

	require.NoError(t, p.Destroy())
	assert.False(t, p.Held())
	closeCall := bus.calls[len(bus.calls)-1]
	assert.Equal(t, requestIface+".Close", closeCall.method)
	assert.Equal(t, dbus.ObjectPath("/org/freedesktop/portal/desktop/request/1_42/t"), closeCall.path)

	assert.ErrorIs(t, p.Destroy(), ErrNotHeld)
}

func TestPortalInhibitorUnavailable(t *testing.T) {
	bus := newFakeBus()
	bus.fail("org.freedesktop.DBus.Properties.Get", dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"})

	_, err := newPortalInhibitor(context.Background(), bus)
	assert.Error(t, err)
}

func TestPortalInhibitorRequestAlreadyGone(t *testing.T) {
	bus := newFakeBus()
	bus.reply("org.freedesktop.DBus.Properties.Get", uint32(3))
	bus.reply(portalInterface+".Inhibit", dbus.ObjectPath("/request/1"))
	bus.fail(requestIface+".Close", dbus.Error{Name: dbusUnknownObject})

	p, err := newPortalInhibitor(context.Background(), bus)
	require.NoError(t, err)
	require.NoError(t, p.Create())

	assert.NoError(t, p.Destroy())
	assert.False(t, p.Held())
}

func TestPortalInhibitorReleaseFailure(t *testing.T) {
	bus := newFakeBus()
	bus.reply("org.freedesktop.DBus.Properties.Get", uint32(3))
	bus.reply(portalInterface+".Inhibit", dbus.ObjectPath("/request/1"))
	bus.fail(requestIface+".Close", errors.New("connection reset"))

	p, err := newPortalInhibitor(context.Background(), bus)
	require.NoError(t, err)
	require.NoError(t, p.Create())

	assert.Error(t, p.Destroy())
	assert.False(t, p.Held(), "a failed release still drops the handle")
}

func TestScreenSaverInhibitor(t *testing.T) {
	bus := newFakeBus()
	bus.reply(screenSaverIface+".Inhibit", uint32(1234))

	s := newScreenSaverInhibitor(context.Background(), bus)
	assert.Equal(t, BackendScreenSaver, s.Name())

	require.NoError(t, s.Create())
	assert.True(t, s.Held())
	assert.Equal(t, []interface{}{applicationName, inhibitReason}, bus.calls[0].args)

	require.NoError(t, s.Destroy())
	assert.False(t, s.Held())
	assert.Equal(t, []string{screenSaverIface + ".Inhibit", screenSaverIface + ".UnInhibit"}, bus.methods())
	assert.Equal(t, []interface{}{uint32(1234)}, bus.calls[1].args)

	assert.ErrorIs(t, s.Destroy(), ErrNotHeld)
}

func TestScreenSaverInhibitorZeroCookie(t *testing.T) {
	bus := newFakeBus()
	bus.reply(screenSaverIface+".Inhibit", uint32(0))

	s := newScreenSaverInhibitor(context.Background(), bus)
	assert.Error(t, s.Create())
	assert.False(t, s.Held())
}

func TestSessionBusLiveness(t *testing.T) {
	bus := newFakeBus()
	s := newScreenSaverInhibitor(context.Background(), bus)

	assert.NoError(t, s.Service())
	select {
	case <-s.Done():
		t.Fatal("done before close")
	default:
	}

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Service(), ErrBusDisconnected)
	<-s.Done()
}

func TestIsGone(t *testing.T) {
	assert.True(t, isGone(dbus.Error{Name: dbusUnknownObject}))
	assert.True(t, isGone(&dbus.Error{Name: dbusUnknownMethod}))
	assert.False(t, isGone(dbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}))
	assert.False(t, isGone(errors.New("EOF")))
}
