// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/connect-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

// ProfileList displays profiles in a navigable list.
type ProfileList struct {
	profiles []domain.Profile
	selected int
	styles   *styles.Styles
	height   int
}

// NewProfileList creates a new profile list component.
func NewProfileList(s *styles.Styles) *ProfileList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ProfileList{
		styles: s,
		height: 10,
	}
}

// SetProfiles replaces the list and selects the current profile.
func (l *ProfileList) SetProfiles(profiles []domain.Profile) {
	l.profiles = profiles
	l.selected = 0
	for i, p := range profiles {
		if p.Current {
			l.selected = i
			break
		}
	}
}

// View renders the visible window of the list.
func (l *ProfileList) View() string {
	if len(l.profiles) == 0 {
		return l.styles.Muted.Render("No profiles")
	}

	visible := max(l.height, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.profiles))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderProfile(i, &l.profiles[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *ProfileList) renderProfile(index int, p *domain.Profile) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	marker := ""
	if p.Current {
		marker = " (current)"
	}

	if index == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("%s%s%s", indicator, p.Name, marker))
	}
	return l.styles.Normal.Render(indicator+p.Name) + l.styles.Muted.Render(marker)
}

// Selected returns the index of the selected profile.
func (l *ProfileList) Selected() int {
	return l.selected
}

// SelectedProfile returns the selected profile, or nil if the list is empty.
func (l *ProfileList) SelectedProfile() *domain.Profile {
	if l.selected < 0 || l.selected >= len(l.profiles) {
		return nil
	}
	return &l.profiles[l.selected]
}

// MoveUp moves selection up.
func (l *ProfileList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ProfileList) MoveDown() {
	if l.selected < len(l.profiles)-1 {
		l.selected++
	}
}

// MoveFirst selects the first profile.
func (l *ProfileList) MoveFirst() {
	l.selected = 0
}

// MoveLast selects the last profile.
func (l *ProfileList) MoveLast() {
	l.selected = max(len(l.profiles)-1, 0)
}

// SetHeight sets how many rows are shown at once.
func (l *ProfileList) SetHeight(height int) {
	l.height = height
}

// Count returns the number of profiles.
func (l *ProfileList) Count() int {
	return len(l.profiles)
}
