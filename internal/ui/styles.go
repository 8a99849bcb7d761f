// Package ui provides terminal output styling for the mediasync CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette
var (
	ColorAccent  = lipgloss.Color("#7C6FF0") // violet, brand color
	ColorSuccess = lipgloss.Color("#4DB6AC") // teal for healthy state
	ColorWarning = lipgloss.Color("#F4D03F") // amber for drift and issues
	ColorError   = lipgloss.Color("#E74C3C") // red for failures
	ColorMuted   = lipgloss.Color("#6B7280") // grey for secondary text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Label:   lipgloss.NewStyle().Foreground(ColorMuted),
	Value:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
}

// ColorEnabled reports whether the terminal supports colored output.
// Honors NO_COLOR and dumb terminals via termenv.
func ColorEnabled() bool {
	if termenv.EnvNoColor() {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// render applies style only when the terminal supports it.
func render(style lipgloss.Style, text string) string {
	if !ColorEnabled() {
		return text
	}
	return style.Render(text)
}

// Pass renders text as a healthy-state indicator.
func Pass(text string) string {
	return render(Styles.Success, "✓ "+text)
}

// Warn renders text as a drift or issue indicator.
func Warn(text string) string {
	return render(Styles.Warning, "⚠ "+text)
}

// Fail renders text as a failure indicator.
func Fail(text string) string {
	return render(Styles.Error, "✗ "+text)
}

// Title renders a section heading.
func Title(text string) string {
	return render(Styles.Title, text)
}

// Muted renders secondary text.
func Muted(text string) string {
	return render(Styles.Muted, text)
}

// KV renders a label/value pair for status output.
func KV(label, value string) string {
	return render(Styles.Label, label+": ") + render(Styles.Value, value)
}
