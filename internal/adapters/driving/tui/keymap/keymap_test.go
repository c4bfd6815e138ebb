package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyMap_Matches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		binding key.Binding
	}{
		{"arrow up", tea.KeyMsg{Type: tea.KeyUp}, km.Up},
		{"k", runes("k"), km.Up},
		{"j", runes("j"), km.Down},
		{"home", tea.KeyMsg{Type: tea.KeyHome}, km.First},
		{"g", runes("g"), km.First},
		{"G", runes("G"), km.Last},
		{"end", tea.KeyMsg{Type: tea.KeyEnd}, km.Last},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, km.Select},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, km.Cancel},
		{"q", runes("q"), km.Cancel},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, km.Cancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, key.Matches(tt.msg, tt.binding))
		})
	}

	assert.False(t, key.Matches(runes("g"), km.Last))
}

func TestKeyMap_HelpLine(t *testing.T) {
	km := DefaultKeyMap()
	assert.Equal(t, "↑/k up  ↓/j down  enter select  esc/q cancel", km.HelpLine())

	km.Cancel.SetEnabled(false)
	assert.NotContains(t, km.HelpLine(), "cancel")
}
