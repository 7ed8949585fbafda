//go:build linux

package linux

import "github.com/rajveermalviya/go-wayland/wayland/client"

// Interface names of the idle-inhibit-unstable-v1 protocol.
const (
	IdleInhibitManagerInterfaceName = "zwp_idle_inhibit_manager_v1"
	IdleInhibitorInterfaceName      = "zwp_idle_inhibitor_v1"
)

// IdleInhibitManager : control behavior when display idles
//
// This interface permits inhibiting the idle behavior such as screen
// blanking, locking, and screensaving.
type IdleInhibitManager struct {
	client.BaseProxy
}

// NewIdleInhibitManager : control behavior when display idles
func NewIdleInhibitManager(ctx *client.Context) *IdleInhibitManager {
	zwpIdleInhibitManagerV1 := &IdleInhibitManager{}
	ctx.Register(zwpIdleInhibitManagerV1)
	return zwpIdleInhibitManagerV1
}

// Destroy : destroy the idle inhibitor object
//
// Destroy the inhibit manager.
func (i *IdleInhibitManager) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 0
	const _reqBufLen = 8
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return err
}

// CreateInhibitor : create a new inhibitor object
//
// Create a new inhibitor object associated with the given surface.
func (i *IdleInhibitManager) CreateInhibitor(surface *client.Surface) (*IdleInhibitor, error) {
	id := NewIdleInhibitor(i.Context())
	const opcode = 1
	const _reqBufLen = 8 + 4 + 4
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], id.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], surface.ID())
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return id, err
}

// IdleInhibitor : context object for inhibiting idle behavior
//
// An idle inhibitor prevents the output that the associated surface is
// visible on from being set to a state where it is not visually usable due
// to lack of user interaction (e.g. blanked, dimmed, locked, set to power
// save, etc.)
type IdleInhibitor struct {
	client.BaseProxy
}

// NewIdleInhibitor : context object for inhibiting idle behavior
func NewIdleInhibitor(ctx *client.Context) *IdleInhibitor {
	zwpIdleInhibitorV1 := &IdleInhibitor{}
	ctx.Register(zwpIdleInhibitorV1)
	return zwpIdleInhibitorV1
}

// Destroy : destroy the idle inhibitor object
//
// Remove the inhibitor effect from the associated wl_surface.
func (i *IdleInhibitor) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 0
	const _reqBufLen = 8
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return err
}

// writeSync sends wl_display.sync for a callback that is already registered.
// Unlike Display.Sync it leaves the object map alone, so it may run beside a
// blocked Dispatch.
func writeSync(display *client.Display, callback uint32) error {
	const opcode = 0
	const _reqBufLen = 8 + 4
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], display.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], callback)
	l += 4
	err := display.Context().WriteMsg(_reqBuf[:], nil)
	return err
}
