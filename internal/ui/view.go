package ui

import (
	"fmt"
	"strings"

	"github.com/stigoleg/pad-alive/internal/gamepad"
	"github.com/stigoleg/pad-alive/internal/keepalive"
	"github.com/stigoleg/pad-alive/internal/util"
)

// View renders the current state of the model to a string.
func View(m Model) string {
	if m.Quitting {
		if m.Err != nil {
			return Current.Error.Render(m.Err.Error()) + "\n"
		}
		return ""
	}

	var b strings.Builder

	b.WriteString(Current.Title.Render("padalive"))
	b.WriteString("\n\n")

	device := m.DevicePath
	if m.DeviceName != "" {
		device = fmt.Sprintf("%s (%s)", m.DeviceName, m.DevicePath)
	}
	row(&b, "Device", device)
	row(&b, "Backend", m.Backend)

	if !m.HasStatus {
		row(&b, "State", Current.InactiveStatus.Render("waiting for first update"))
	} else {
		row(&b, "State", stateView(m))
		b.WriteString("\n")
		row(&b, "Buttons", buttonsView(m.Status.Sample))
		for i, v := range m.Status.Sample.Axes {
			row(&b, gamepad.AxisName(i), fmt.Sprintf("%s %+.2f", m.bar.ViewAs((v+1)/2), v))
		}
		for i, v := range m.Status.Sample.Triggers {
			row(&b, gamepad.TriggerName(i), fmt.Sprintf("%s %.2f", m.bar.ViewAs(v), v))
		}
	}

	if m.Notice != "" {
		b.WriteString("\n" + Current.Notice.Render(m.Notice) + "\n")
	}

	b.WriteString("\n" + Current.Help.Render(m.help.View(m.keys)))
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(Current.Label.Render(label))
	b.WriteString(Current.Value.Render(value))
	b.WriteString("\n")
}

func stateView(m Model) string {
	idle := "idle " + util.FormatDuration(m.Idle())
	if m.Status.State == keepalive.Active {
		return Current.ActiveStatus.Render("ACTIVE") + "  inhibiting idle  " +
			Current.InactiveStatus.Render(fmt.Sprintf("%s, release in %s", idle, util.FormatDuration(m.UntilRelease())))
	}
	return Current.InactiveStatus.Render("INACTIVE  " + idle)
}

func buttonsView(s gamepad.Sample) string {
	names := make([]string, len(s.Buttons))
	for i, pressed := range s.Buttons {
		if pressed {
			names[i] = Current.Pressed.Render(gamepad.ButtonName(i))
		} else {
			names[i] = Current.Released.Render(gamepad.ButtonName(i))
		}
	}
	return strings.Join(names, " ")
}
