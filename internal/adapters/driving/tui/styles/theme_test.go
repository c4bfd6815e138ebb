package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestDefaultStyles_UsesPalette(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	s := DefaultStyles()

	assert.Equal(t, DefaultPalette, s.Palette())
	assert.Equal(t, lipgloss.TerminalColor(DefaultPalette.Label), s.Key.GetForeground())
	assert.True(t, s.Title.GetBold())
}

func TestDefaultStyles_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	s := DefaultStyles()

	assert.Equal(t, Palette{}, s.Palette())
	assert.Equal(t, lipgloss.TerminalColor(lipgloss.NoColor{}), s.Key.GetForeground())
	assert.True(t, s.Selected.GetReverse())
}

func TestStyles_RenderKeepsText(t *testing.T) {
	s := New(DefaultPalette)

	assert.Contains(t, s.Title.Render("Profiles"), "Profiles")
	assert.Contains(t, s.Key.Render("name"), "name")
	assert.Contains(t, s.Help.Render("q quit"), "q quit")
}
