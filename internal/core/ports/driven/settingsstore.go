package driven

// SettingsStore persists the global settings shared by every connector.
// Keys use dot notation such as "output.format". Values are strings,
// integers or booleans; integers may come back as int64.
type SettingsStore interface {
	// Get returns the value of key and whether it is set.
	Get(key string) (any, bool)

	// Set stores value under key and persists it.
	Set(key string, value any) error

	// Unset removes key. Removing a missing key is not an error.
	Unset(key string) error

	// Keys returns every set key in sorted order.
	Keys() []string

	// Path names the backing file, or "" when nothing is persisted.
	Path() string
}
