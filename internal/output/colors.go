// Package output renders run progress and results for humans and machines.
package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Border    *color.Color
	Title     *color.Color
	Label     *color.Color
	Value     *color.Color
	Latency   *color.Color
	Accent    *color.Color
	Dim       *color.Color
	Success   *color.Color
	Warning   *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Border:    color.New(color.FgCyan),
		Title:     color.New(color.Bold),
		Label:     color.New(color.Bold),
		Value:     color.New(color.FgCyan),
		Latency:   color.New(color.FgBlue),
		Accent:    color.New(color.FgMagenta),
		Dim:       color.New(color.Faint),
		Success:   color.New(color.FgGreen),
		Warning:   color.New(color.FgYellow),
		Error:     color.New(color.FgRed),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// ForcedColorScheme returns the default scheme with colors enabled even
// when stdout is not detected as a terminal.
func ForcedColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return scheme
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{
		s.Border, s.Title, s.Label, s.Value, s.Latency, s.Accent,
		s.Dim, s.Success, s.Warning, s.Error, s.Highlight,
	}
}

// ratioColor picks green, yellow or red for a failure ratio.
func (s *ColorScheme) ratioColor(failureRatio float64) *color.Color {
	switch {
	case failureRatio > 0.05:
		return s.Error
	case failureRatio > 0.01:
		return s.Warning
	default:
		return s.Success
	}
}
