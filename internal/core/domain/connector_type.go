package domain

// ConnectorType describes a supported connector.
type ConnectorType struct {
	// ID is the unique identifier and state directory name (e.g. "notion").
	ID string
	// Name is the human-readable display name.
	Name string
	// Description provides a brief explanation of the connector.
	Description string
	// EnvPrefix is the environment variable prefix (e.g. "NOTION").
	EnvPrefix string
	// AuthMethod specifies how the connector authenticates.
	AuthMethod AuthMethod
	// ConfigKeys lists the configuration fields understood by this connector.
	ConfigKeys []ConfigKey
}

// ConfigKey describes a configuration field for a connector.
type ConfigKey struct {
	// Key is the configuration key name.
	Key string
	// Description explains what this field is for.
	Description string
	// Required indicates whether this field must be provided.
	Required bool
	// Secret indicates whether this field should be masked on output.
	Secret bool
}

// RequiredKeys returns the keys that must be set before the connector can be used.
func (c *ConnectorType) RequiredKeys() []string {
	var keys []string
	for _, k := range c.ConfigKeys {
		if k.Required {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// IsSecret reports whether key holds a secret value.
func (c *ConnectorType) IsSecret(key string) bool {
	for _, k := range c.ConfigKeys {
		if k.Key == key {
			return k.Secret
		}
	}
	return false
}
