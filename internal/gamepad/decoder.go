package gamepad

import (
	evdev "github.com/holoplot/go-evdev"
)

// AxisRange is the calibrated range the kernel reports for an absolute axis.
type AxisRange struct {
	Min int32
	Max int32
}

// Decoder folds raw evdev events into a Sample using per-axis calibration
// captured when the device was opened.
type Decoder struct {
	ranges map[evdev.EvCode]AxisRange
	sample Sample
}

// NewDecoder returns a decoder with a zeroed sample. Axes missing from
// ranges are treated as degenerate and always read as zero.
func NewDecoder(ranges map[evdev.EvCode]AxisRange) *Decoder {
	if ranges == nil {
		ranges = map[evdev.EvCode]AxisRange{}
	}
	return &Decoder{ranges: ranges, sample: NewSample()}
}

// rangesFromAbsInfo converts the kernel's absinfo table.
func rangesFromAbsInfo(infos map[evdev.EvCode]evdev.AbsInfo) map[evdev.EvCode]AxisRange {
	ranges := make(map[evdev.EvCode]AxisRange, len(infos))
	for code, info := range infos {
		ranges[code] = AxisRange{Min: info.Minimum, Max: info.Maximum}
	}
	return ranges
}

// Apply folds one raw event into the sample. It reports whether the event
// touched a tracked slot.
func (d *Decoder) Apply(ev evdev.InputEvent) bool {
	switch ev.Type {
	case evdev.EV_KEY:
		if ev.Code < evdev.BTN_A || ev.Code > evdev.BTN_THUMBR {
			return false
		}
		d.sample.Buttons[ev.Code-evdev.BTN_A] = ev.Value != 0
		return true
	case evdev.EV_ABS:
		if i := indexOf(axisCodes, ev.Code); i >= 0 {
			d.sample.Axes[i] = normalizeAxis(ev.Value, d.ranges[ev.Code])
			return true
		}
		if i := indexOf(triggerCodes, ev.Code); i >= 0 {
			d.sample.Triggers[i] = normalizeTrigger(ev.Value, d.ranges[ev.Code])
			return true
		}
	}
	return false
}

// Sample returns the current state. The slices are shared with the decoder
// and must not be modified; use Clone to keep a copy.
func (d *Decoder) Sample() Sample {
	return d.sample
}

func normalizeAxis(value int32, r AxisRange) float64 {
	if r.Max <= r.Min {
		return 0
	}
	span := float64(r.Max) - float64(r.Min)
	return (float64(value)-float64(r.Min))/span*2 - 1
}

func normalizeTrigger(value int32, r AxisRange) float64 {
	if r.Max <= 0 {
		return 0
	}
	return float64(value) / float64(r.Max)
}

func indexOf(codes []evdev.EvCode, code evdev.EvCode) int {
	for i, c := range codes {
		if c == code {
			return i
		}
	}
	return -1
}
