package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driven"
	"github.com/custodia-labs/connect-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Global setting keys.
const (
	KeyOutputFormat    = "output.format"
	KeyHTTPTimeout     = "http.timeout"
	KeyBulkBatchSize   = "bulk.batch_size"
	KeyMetaAPIVersion  = "meta.api_version"
	KeyMixpanelRegion  = "mixpanel.region"
	KeyDriveWebhookURL = "googledrive.webhook_url"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindDuration
)

type settingSpec struct {
	kind    settingKind
	allowed []string
}

var knownSettings = map[string]settingSpec{
	KeyOutputFormat:    {kind: kindString, allowed: []string{"json", "yaml", "table", "pretty"}},
	KeyHTTPTimeout:     {kind: kindDuration},
	KeyBulkBatchSize:   {kind: kindInt},
	KeyMetaAPIVersion:  {kind: kindString},
	KeyMixpanelRegion:  {kind: kindString, allowed: []string{"us", "eu"}},
	KeyDriveWebhookURL: {kind: kindString},
}

// KnownSettings returns the accepted setting keys.
func KnownSettings() []string {
	return []string{
		KeyBulkBatchSize, KeyDriveWebhookURL, KeyHTTPTimeout,
		KeyMetaAPIVersion, KeyMixpanelRegion, KeyOutputFormat,
	}
}

// SettingsService validates and stores global settings.
type SettingsService struct {
	store driven.SettingsStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(store driven.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns a setting.
func (s *SettingsService) Get(key string) (any, bool) {
	return s.store.Get(key)
}

// Path returns the settings file, "" when settings are not persisted.
func (s *SettingsService) Path() string {
	return s.store.Path()
}

// Set validates value for key and stores it with the key's type.
func (s *SettingsService) Set(key, value string) error {
	def, ok := knownSettings[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s): %w",
			key, strings.Join(KnownSettings(), ", "), domain.ErrInvalidInput)
	}

	switch def.kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer: %w", key, domain.ErrInvalidInput)
		}
		return s.store.Set(key, n)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration such as 30s: %w", key, domain.ErrInvalidInput)
		}
		return s.store.Set(key, d.String())
	default:
		if len(def.allowed) > 0 && !slices.Contains(def.allowed, value) {
			return fmt.Errorf("%s must be one of %s: %w",
				key, strings.Join(def.allowed, ", "), domain.ErrInvalidInput)
		}
		return s.store.Set(key, value)
	}
}

// Unset removes a setting.
func (s *SettingsService) Unset(key string) error {
	return s.store.Unset(key)
}

// List returns every stored setting.
func (s *SettingsService) List() map[string]any {
	out := make(map[string]any)
	for _, k := range s.store.Keys() {
		if v, ok := s.store.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// OutputFormat returns output.format.
func (s *SettingsService) OutputFormat() string {
	return s.str(KeyOutputFormat)
}

// BatchSize returns bulk.batch_size or def.
func (s *SettingsService) BatchSize(def int) int {
	v, _ := s.store.Get(KeyBulkBatchSize)
	var n int
	switch val := v.(type) {
	case int:
		n = val
	case int64:
		n = int(val)
	}
	if n > 0 {
		return n
	}
	return def
}

// HTTPTimeout returns http.timeout or def.
func (s *SettingsService) HTTPTimeout(def time.Duration) time.Duration {
	d, err := time.ParseDuration(s.str(KeyHTTPTimeout))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// String returns a string setting, or def when unset.
func (s *SettingsService) String(key, def string) string {
	if v := s.str(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) str(key string) string {
	v, _ := s.store.Get(key)
	str, _ := v.(string)
	return str
}
