// Package ui renders the live controller monitor and styled terminal
// messages.
package ui

import "github.com/charmbracelet/lipgloss"

// Colors defines the color scheme used throughout the application
type Colors struct {
	Subtle    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Special   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
}

var defaultColors = Colors{
	Subtle:    lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"},
	Highlight: lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"},
	Special:   lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"},
	Error:     lipgloss.AdaptiveColor{Light: "#FF0000", Dark: "#FF4040"},
}

// Style represents a collection of styles used in the application
type Style struct {
	Title          lipgloss.Style
	Label          lipgloss.Style
	Value          lipgloss.Style
	ActiveStatus   lipgloss.Style
	InactiveStatus lipgloss.Style
	Pressed        lipgloss.Style
	Released       lipgloss.Style
	Notice         lipgloss.Style
	Help           lipgloss.Style
	Error          lipgloss.Style
	ErrorBox       lipgloss.Style
}

// DefaultStyle returns the default style configuration
func DefaultStyle() Style {
	base := lipgloss.NewStyle().
		PaddingLeft(1).
		PaddingRight(1)

	return Style{
		Title: base.
			Bold(true).
			Foreground(defaultColors.Highlight),

		Label: base.
			Width(11).
			Foreground(defaultColors.Subtle),

		Value: lipgloss.NewStyle(),

		ActiveStatus: lipgloss.NewStyle().
			Bold(true).
			Foreground(defaultColors.Special),

		InactiveStatus: lipgloss.NewStyle().
			Foreground(defaultColors.Subtle),

		Pressed: lipgloss.NewStyle().
			Bold(true).
			Foreground(defaultColors.Highlight),

		Released: lipgloss.NewStyle().
			Foreground(defaultColors.Subtle).
			Faint(true),

		Notice: base.
			Italic(true).
			Foreground(defaultColors.Special),

		Help: base.
			Foreground(defaultColors.Subtle),

		Error: base.
			Foreground(defaultColors.Error),

		ErrorBox: base.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(defaultColors.Error).
			Padding(0, 1),
	}
}

// Current holds the current style configuration
var Current = DefaultStyle()
