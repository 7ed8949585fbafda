package gamepad

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"

	"github.com/stigoleg/pad-alive/internal/logging"
)

// DefaultByIDDir holds the persistent per-device links udev maintains.
const DefaultByIDDir = "/dev/input/by-id"

// joystickMarker is the suffix udev gives the evdev node of a joystick.
const joystickMarker = "-event-joystick"

// ErrNoDevice is returned when no game controller is connected.
var ErrNoDevice = errors.New("game controller is not connected")

// Find resolves the event node of the first connected controller. It scans
// the by-id links in dir first and falls back to probing every evdev node
// for gamepad capabilities.
func Find(ctx context.Context, dir string) (string, error) {
	log := logging.FromContext(ctx)

	path, err := FindByID(dir)
	if err == nil {
		log.Debug().Str("path", path).Str("dir", dir).Msg("gamepad: found by-id link")
		return path, nil
	}
	if !errors.Is(err, ErrNoDevice) {
		log.Debug().Err(err).Str("dir", dir).Msg("gamepad: by-id scan failed")
	}

	path, err = findByCapabilities()
	if err != nil {
		return "", err
	}
	log.Debug().Str("path", path).Msg("gamepad: found by capabilities")
	return path, nil
}

// FindByID scans dir for a symlink whose name marks a joystick event node
// and returns the link's resolved target.
func FindByID(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoDevice
		}
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		if !strings.Contains(entry.Name(), joystickMarker) {
			continue
		}
		target, err := filepath.EvalSymlinks(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		return target, nil
	}
	return "", ErrNoDevice
}

func findByCapabilities() (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", fmt.Errorf("list input devices: %w", err)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Path < paths[j].Path })

	for _, p := range paths {
		dev, err := openNode(p.Path)
		if err != nil {
			continue
		}
		ok := looksLikeGamepad(dev)
		dev.Close()
		if ok {
			return p.Path, nil
		}
	}
	return "", ErrNoDevice
}

func looksLikeGamepad(dev *evdev.InputDevice) bool {
	hasAbs := false
	for _, t := range dev.CapableTypes() {
		if t == evdev.EV_ABS {
			hasAbs = true
			break
		}
	}
	if !hasAbs {
		return false
	}
	for _, code := range dev.CapableEvents(evdev.EV_KEY) {
		if code == evdev.BTN_A {
			return true
		}
	}
	return false
}
