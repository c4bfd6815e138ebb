package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ZoneSetting is one zone setting. Value varies by setting: a string such as
// "on", a number, or an object.
type ZoneSetting struct {
	ID         string          `json:"id"`
	Value      json.RawMessage `json:"value"`
	Editable   bool            `json:"editable"`
	ModifiedOn *time.Time      `json:"modified_on,omitempty"`
}

// String renders the value, unquoting plain strings.
func (z ZoneSetting) String() string {
	var s string
	if json.Unmarshal(z.Value, &s) == nil {
		return s
	}
	return string(z.Value)
}

// SettingsService handles zone setting endpoints.
type SettingsService struct {
	c *Client
}

// List returns every setting of a zone.
func (s *SettingsService) List(ctx context.Context, zoneID string) ([]ZoneSetting, error) {
	settings, _, err := get[[]ZoneSetting](ctx, s.c, zonePath(zoneID, "settings"), nil)
	if err != nil {
		return nil, fmt.Errorf("list settings of zone %s: %w", zoneID, err)
	}
	return settings, nil
}

// Get returns one setting, such as "ssl" or "always_use_https".
func (s *SettingsService) Get(ctx context.Context, zoneID, setting string) (*ZoneSetting, error) {
	z, _, err := get[ZoneSetting](ctx, s.c, zonePath(zoneID, "settings", setting), nil)
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", setting, err)
	}
	return &z, nil
}

// Edit sets one setting's value.
func (s *SettingsService) Edit(ctx context.Context, zoneID, setting string, value any) (*ZoneSetting, error) {
	z, err := send[ZoneSetting](ctx, s.c, http.MethodPatch, zonePath(zoneID, "settings", setting), map[string]any{"value": value})
	if err != nil {
		return nil, fmt.Errorf("edit setting %s: %w", setting, err)
	}
	return &z, nil
}

// ParseSettingValue turns CLI input into a setting value: JSON when it
// parses, a plain string otherwise.
func ParseSettingValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
