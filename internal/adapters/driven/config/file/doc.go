// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.connect.
//
// Adapters:
//   - SettingsStore: global settings in settings.toml
//   - ProfileStore: per-connector JSON profiles with a current_profile marker
package file
