// Package keymap holds the key bindings of the profile picker.
package keymap

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap is the set of bindings the picker reacts to.
type KeyMap struct {
	Up, Down    key.Binding
	First, Last key.Binding
	Select      key.Binding
	Cancel      key.Binding
}

func bind(keys []string, helpKey, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

// DefaultKeyMap uses arrows plus vi motions.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up:     bind([]string{"up", "k"}, "↑/k", "up"),
		Down:   bind([]string{"down", "j"}, "↓/j", "down"),
		First:  bind([]string{"home", "g"}, "g", "first"),
		Last:   bind([]string{"end", "G"}, "G", "last"),
		Select: bind([]string{"enter"}, "enter", "select"),
		Cancel: bind([]string{"esc", "q", "ctrl+c"}, "esc/q", "cancel"),
	}
}

// ShortHelp lists the bindings worth showing; First and Last are left out
// to keep the line short.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Cancel}
}

// HelpLine renders ShortHelp as "key action" pairs. Disabled bindings are
// skipped.
func (k *KeyMap) HelpLine() string {
	var parts []string
	for _, b := range k.ShortHelp() {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
