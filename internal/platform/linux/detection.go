//go:build linux

// Package linux implements the idle inhibit backends: the Wayland
// idle-inhibit protocol and the D-Bus portal and screensaver interfaces.
package linux

import (
	"os"
	"strings"
)

// Display server types.
const (
	DisplayServerWayland = "wayland"
	DisplayServerX11     = "x11"
	DisplayServerUnknown = "unknown"
)

// Desktop environment types.
const (
	DesktopCosmic  = "cosmic"
	DesktopGNOME   = "gnome"
	DesktopKDE     = "kde"
	DesktopXFCE    = "xfce"
	DesktopMATE    = "mate"
	DesktopUnknown = "unknown"
)

// DetectDesktopEnvironment detects the current desktop environment.
func DetectDesktopEnvironment() string {
	xdgDesktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	desktopSession := strings.ToLower(os.Getenv("DESKTOP_SESSION"))

	// Check for Cosmic (Pop OS)
	if strings.Contains(xdgDesktop, DesktopCosmic) || strings.Contains(xdgDesktop, "pop") ||
		strings.Contains(desktopSession, DesktopCosmic) || strings.Contains(desktopSession, "pop") {
		return DesktopCosmic
	}

	if strings.Contains(xdgDesktop, DesktopGNOME) || strings.Contains(desktopSession, DesktopGNOME) {
		return DesktopGNOME
	}

	if strings.Contains(xdgDesktop, DesktopKDE) || strings.Contains(desktopSession, DesktopKDE) ||
		strings.Contains(xdgDesktop, "plasma") {
		return DesktopKDE
	}

	if strings.Contains(xdgDesktop, DesktopXFCE) || strings.Contains(desktopSession, DesktopXFCE) {
		return DesktopXFCE
	}

	if strings.Contains(xdgDesktop, DesktopMATE) || strings.Contains(desktopSession, DesktopMATE) {
		return DesktopMATE
	}

	return DesktopUnknown
}

// DetectDisplayServer detects whether running on Wayland or X11.
func DetectDisplayServer() string {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if os.Getenv("XDG_SESSION_TYPE") == DisplayServerWayland {
		return DisplayServerWayland
	}
	if os.Getenv("DISPLAY") != "" {
		return DisplayServerX11
	}
	if os.Getenv("XDG_SESSION_TYPE") == DisplayServerX11 {
		return DisplayServerX11
	}
	return DisplayServerUnknown
}
