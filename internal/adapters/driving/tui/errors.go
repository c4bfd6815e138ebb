package tui

import "errors"

// ErrCancelled is returned when the user leaves the picker without choosing.
var ErrCancelled = errors.New("tui: selection cancelled")

// ErrNoProfiles is returned when there is nothing to pick from.
var ErrNoProfiles = errors.New("tui: no profiles to choose from")
