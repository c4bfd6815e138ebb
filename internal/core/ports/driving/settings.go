package driving

// SettingsService manages global settings (settings.toml).
type SettingsService interface {
	// Get returns the value of key and whether it is set.
	Get(key string) (any, bool)

	// Set parses value according to the key's type and stores it.
	// Unknown keys return domain.ErrInvalidInput.
	Set(key, value string) error

	// Unset removes key.
	Unset(key string) error

	// List returns every set key with its value.
	List() map[string]any

	// OutputFormat returns output.format, or "" when unset.
	OutputFormat() string

	// BatchSize returns bulk.batch_size, or def when unset or invalid.
	BatchSize(def int) int

	// Path returns the settings file, "" when nothing is persisted.
	Path() string
}
