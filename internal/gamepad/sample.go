// Package gamepad reads a game controller through evdev and folds its raw
// events into a normalized Sample.
package gamepad

import (
	"math"

	evdev "github.com/holoplot/go-evdev"
)

// Classifier thresholds.
const (
	// Deadzone is the axis magnitude treated as stick noise.
	Deadzone = 0.1
	// TriggerThreshold is the trigger travel treated as noise.
	TriggerThreshold = 0.1
)

// buttonCount covers the gamepad face, shoulder, menu and thumb buttons
// (BTN_A through BTN_THUMBR).
const buttonCount = int(evdev.BTN_THUMBR-evdev.BTN_A) + 1

// axisCodes and triggerCodes give the slot order of Sample.Axes and
// Sample.Triggers.
var (
	axisCodes    = []evdev.EvCode{evdev.ABS_X, evdev.ABS_Y, evdev.ABS_RX, evdev.ABS_RY}
	triggerCodes = []evdev.EvCode{evdev.ABS_Z, evdev.ABS_RZ}
)

// Sample is the persistent, normalized controller state. A slot keeps its
// last value until a new raw event overwrites it.
type Sample struct {
	Buttons  []bool
	Axes     []float64 // [-1, 1]
	Triggers []float64 // [0, 1]
}

// NewSample returns a zeroed sample sized for a standard gamepad.
func NewSample() Sample {
	return Sample{
		Buttons:  make([]bool, buttonCount),
		Axes:     make([]float64, len(axisCodes)),
		Triggers: make([]float64, len(triggerCodes)),
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Sample) Clone() Sample {
	c := Sample{
		Buttons:  make([]bool, len(s.Buttons)),
		Axes:     make([]float64, len(s.Axes)),
		Triggers: make([]float64, len(s.Triggers)),
	}
	copy(c.Buttons, s.Buttons)
	copy(c.Axes, s.Axes)
	copy(c.Triggers, s.Triggers)
	return c
}

// IsActive reports whether the controller is being used right now: any
// button held, any stick outside the deadzone, or any trigger pulled.
func IsActive(s Sample) bool {
	for _, pressed := range s.Buttons {
		if pressed {
			return true
		}
	}
	for _, v := range s.Axes {
		if math.Abs(v) > Deadzone {
			return true
		}
	}
	for _, v := range s.Triggers {
		if v > TriggerThreshold {
			return true
		}
	}
	return false
}

// ButtonName returns a short label for the button at index i of
// Sample.Buttons.
func ButtonName(i int) string {
	names := [...]string{"A", "B", "C", "X", "Y", "Z", "LB", "RB", "LT", "RT", "Sel", "Start", "Mode", "LS", "RS"}
	if i < 0 || i >= len(names) {
		return "?"
	}
	return names[i]
}

// AxisName returns a short label for Sample.Axes[i].
func AxisName(i int) string {
	switch i {
	case 0:
		return "LX"
	case 1:
		return "LY"
	case 2:
		return "RX"
	case 3:
		return "RY"
	}
	return "?"
}

// TriggerName returns a short label for Sample.Triggers[i].
func TriggerName(i int) string {
	switch i {
	case 0:
		return "LT"
	case 1:
		return "RT"
	}
	return "?"
}
