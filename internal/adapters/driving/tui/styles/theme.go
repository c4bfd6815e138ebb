// Package styles holds the lipgloss styles shared by the profile picker and
// the CLI's pretty output.
package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colours the styles are derived from.
type Palette struct {
	Accent lipgloss.Color
	Text   lipgloss.Color
	Label  lipgloss.Color
	Dim    lipgloss.Color
}

// DefaultPalette is a dark-terminal palette.
var DefaultPalette = Palette{
	Accent: lipgloss.Color("#7C3AED"),
	Text:   lipgloss.Color("#CDD6F4"),
	Label:  lipgloss.Color("#06B6D4"),
	Dim:    lipgloss.Color("#6C7086"),
}

// Styles are the rendering styles of one palette.
type Styles struct {
	palette Palette

	// Title heads the picker.
	Title lipgloss.Style
	// Key renders field names in key/value output.
	Key lipgloss.Style
	// Normal renders values and unselected rows.
	Normal lipgloss.Style
	// Muted renders markers and empty states.
	Muted lipgloss.Style
	// Selected renders the row under the cursor.
	Selected lipgloss.Style
	// Help renders key hints.
	Help lipgloss.Style
}

// New derives styles from p.
func New(p Palette) *Styles {
	return &Styles{
		palette:  p,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent).MarginBottom(1),
		Key:      lipgloss.NewStyle().Foreground(p.Label),
		Normal:   lipgloss.NewStyle().Foreground(p.Text),
		Muted:    lipgloss.NewStyle().Foreground(p.Dim),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(p.Text).Background(p.Accent),
		Help:     lipgloss.NewStyle().Foreground(p.Dim).Italic(true),
	}
}

// Plain returns styles without colour or emphasis.
func Plain() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Title:    plain.MarginBottom(1),
		Key:      plain,
		Normal:   plain,
		Muted:    plain,
		Selected: plain.Reverse(true),
		Help:     plain,
	}
}

// DefaultStyles returns Plain when NO_COLOR is set and the default
// palette otherwise.
func DefaultStyles() *Styles {
	if os.Getenv("NO_COLOR") != "" {
		return Plain()
	}
	return New(DefaultPalette)
}

// Palette returns the colours the styles were built from.
func (s *Styles) Palette() Palette {
	return s.palette
}
