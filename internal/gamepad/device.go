package gamepad

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"github.com/stigoleg/pad-alive/internal/logging"
)

// eventBacklog bounds raw events buffered between the reader goroutine and
// Drain. A full backlog blocks the reader, never drops events.
const eventBacklog = 256

// ErrDeviceRemoved is reported by Drain once the device node disappears.
var ErrDeviceRemoved = errors.New("controller disconnected")

// Device is an open game controller. A reader goroutine pulls raw events
// off the node; Drain folds everything buffered so far into the sample.
// Drain, Sample and Close must be called from a single goroutine.
type Device struct {
	path    string
	name    string
	dev     *evdev.InputDevice
	decoder *Decoder
	watcher *fsnotify.Watcher

	events chan evdev.InputEvent
	ready  chan struct{}
	closed chan struct{}

	failOnce  sync.Once
	failure   chan error
	err       error
	closeOnce sync.Once
}

// openNode opens an event node read-only. Nothing here writes to a node.
func openNode(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

// Open opens the controller at path and starts reading from it. The axis
// calibration is queried once here.
func Open(ctx context.Context, path string) (*Device, error) {
	log := logging.FromContext(ctx)

	dev, err := openNode(path)
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w", path, err)
	}

	infos, err := dev.AbsInfos()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("query axis ranges of %s: %w", path, err)
	}

	name, err := dev.Name()
	if err != nil {
		name = filepath.Base(path)
	}

	d := &Device{
		path:    path,
		name:    name,
		dev:     dev,
		decoder: NewDecoder(rangesFromAbsInfo(infos)),
		events:  make(chan evdev.InputEvent, eventBacklog),
		ready:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
		failure: make(chan error, 1),
	}

	if err := d.watchRemoval(ctx); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("gamepad: removal watch unavailable")
	}

	go d.read(ctx)

	log.Info().Str("path", path).Str("name", name).Int("axes", len(infos)).Msg("gamepad: device opened")
	return d, nil
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Name returns the kernel-reported device name.
func (d *Device) Name() string { return d.name }

// Ready is signalled whenever new raw events or a failure are pending.
func (d *Device) Ready() <-chan struct{} { return d.ready }

// Drain consumes every buffered raw event without blocking. Once the reader
// has failed, Drain keeps returning that error.
func (d *Device) Drain() error {
	for {
		select {
		case ev := <-d.events:
			d.decoder.Apply(ev)
			continue
		default:
		}
		break
	}

	if d.err == nil {
		select {
		case err := <-d.failure:
			d.err = err
		default:
		}
	}
	return d.err
}

// Sample returns the current normalized state.
func (d *Device) Sample() Sample {
	return d.decoder.Sample()
}

// Close stops the removal watch and releases the device node.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.watcher != nil {
			d.watcher.Close()
		}
		err = d.dev.Close()
	})
	return err
}

func (d *Device) read(ctx context.Context) {
	log := logging.FromContext(ctx)

	for {
		ev, err := d.dev.ReadOne()
		if err != nil {
			if d.isClosed() {
				return
			}
			d.fail(fmt.Errorf("read %s: %w", d.path, err))
			return
		}

		log.Trace().
			Uint16("type", uint16(ev.Type)).
			Uint16("code", uint16(ev.Code)).
			Int32("value", ev.Value).
			Msg("gamepad: raw event")

		select {
		case d.events <- *ev:
		case <-d.closed:
			return
		}
		d.signal()
	}
}

// watchRemoval watches the node's directory so an unplugged controller is
// reported even when the pending read never returns.
func (d *Device) watchRemoval(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(d.path), err)
	}
	d.watcher = watcher

	go func() {
		log := logging.FromContext(ctx)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != d.path || !event.Has(fsnotify.Remove|fsnotify.Rename) {
					continue
				}
				log.Warn().Str("path", d.path).Msg("gamepad: device node removed")
				d.fail(fmt.Errorf("%s: %w", d.path, ErrDeviceRemoved))
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug().Err(err).Msg("gamepad: removal watcher error")
			}
		}
	}()
	return nil
}

func (d *Device) fail(err error) {
	d.failOnce.Do(func() {
		d.failure <- err
		d.signal()
	})
}

func (d *Device) signal() {
	select {
	case d.ready <- struct{}{}:
	default:
	}
}

func (d *Device) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// IsDisconnect reports whether err means the controller went away rather
// than a transient read problem.
func IsDisconnect(err error) bool {
	return errors.Is(err, ErrDeviceRemoved) ||
		errors.Is(err, unix.ENODEV) ||
		errors.Is(err, unix.EBADF)
}
