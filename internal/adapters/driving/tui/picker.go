// Package tui provides the interactive terminal pieces of the CLI, built on
// Bubbletea.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/connect-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/connect-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/connect-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// Picker chooses one profile of a connector.
// It implements tea.Model for use with Bubbletea.
type Picker struct {
	connector string
	list      *list.ProfileList
	keys      *keymap.KeyMap
	styles    *styles.Styles

	chosen    string
	cancelled bool
}

// Ensure Picker implements tea.Model.
var _ tea.Model = (*Picker)(nil)

// NewPicker creates a picker over profiles. The current profile starts selected.
func NewPicker(connector string, profiles []domain.Profile) *Picker {
	s := styles.DefaultStyles()
	l := list.NewProfileList(s)
	l.SetProfiles(profiles)
	return &Picker{
		connector: connector,
		list:      l,
		keys:      keymap.DefaultKeyMap(),
		styles:    s,
	}
}

// Init initialises the picker.
func (p *Picker) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection.
func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, blank line, blank line, help.
		p.list.SetHeight(msg.Height - 4)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit
		case key.Matches(msg, p.keys.Select):
			if selected := p.list.SelectedProfile(); selected != nil {
				p.chosen = selected.Name
			}
			return p, tea.Quit
		case key.Matches(msg, p.keys.Up):
			p.list.MoveUp()
		case key.Matches(msg, p.keys.Down):
			p.list.MoveDown()
		case key.Matches(msg, p.keys.First):
			p.list.MoveFirst()
		case key.Matches(msg, p.keys.Last):
			p.list.MoveLast()
		}
	}
	return p, nil
}

// View renders the picker.
func (p *Picker) View() string {
	var b strings.Builder
	b.WriteString(p.styles.Title.Render(fmt.Sprintf("Switch %s profile", p.connector)))
	b.WriteString("\n\n")
	b.WriteString(p.list.View())
	b.WriteString("\n\n")
	b.WriteString(p.styles.Help.Render(p.keys.HelpLine()))
	b.WriteString("\n")
	return b.String()
}

// Chosen returns the selected profile name, empty until enter is pressed.
func (p *Picker) Chosen() string {
	return p.chosen
}

// Cancelled reports whether the user left without choosing.
func (p *Picker) Cancelled() bool {
	return p.cancelled
}

// PickProfile runs the picker on in and out and returns the chosen name.
func PickProfile(
	ctx context.Context, connector string, profiles []domain.Profile, in io.Reader, out io.Writer,
) (string, error) {
	if len(profiles) == 0 {
		return "", ErrNoProfiles
	}

	program := tea.NewProgram(
		NewPicker(connector, profiles),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	model, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("running profile picker: %w", err)
	}

	picker, ok := model.(*Picker)
	if !ok || picker.Cancelled() || picker.Chosen() == "" {
		return "", ErrCancelled
	}
	return picker.Chosen(), nil
}
