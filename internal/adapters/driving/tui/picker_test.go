package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func testProfiles() []domain.Profile {
	return []domain.Profile{
		{Name: "default", Connector: "stripe", Current: true},
		{Name: "live", Connector: "stripe"},
	}
}

func press(t *testing.T, p *Picker, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	model, cmd := p.Update(msg)
	require.Same(t, p, model)
	return cmd
}

func TestPicker_SelectsWithEnter(t *testing.T) {
	p := NewPicker("stripe", testProfiles())
	assert.Nil(t, p.Init())

	assert.Nil(t, press(t, p, tea.KeyMsg{Type: tea.KeyDown}))
	cmd := press(t, p, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, "live", p.Chosen())
	assert.False(t, p.Cancelled())
}

func TestPicker_Cancel(t *testing.T) {
	p := NewPicker("stripe", testProfiles())

	cmd := press(t, p, tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.True(t, p.Cancelled())
	assert.Empty(t, p.Chosen())
}

func TestPicker_VimKeys(t *testing.T) {
	p := NewPicker("stripe", testProfiles())

	press(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	press(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	press(t, p, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "default", p.Chosen())
}

func TestPicker_JumpToEnds(t *testing.T) {
	p := NewPicker("stripe", testProfiles())

	press(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	press(t, p, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "live", p.Chosen())

	p = NewPicker("stripe", testProfiles())
	press(t, p, tea.KeyMsg{Type: tea.KeyEnd})
	press(t, p, tea.KeyMsg{Type: tea.KeyHome})
	press(t, p, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "default", p.Chosen())
}

func TestPicker_View(t *testing.T) {
	p := NewPicker("stripe", testProfiles())
	p.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	view := p.View()
	assert.Contains(t, view, "Switch stripe profile")
	assert.Contains(t, view, "default (current)")
	assert.Contains(t, view, "live")
	assert.Contains(t, view, "enter select")
}

func TestPickProfile_NoProfiles(t *testing.T) {
	_, err := PickProfile(context.Background(), "stripe", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoProfiles)
}
