package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
)

func TestSettings_SetGetUnset(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "settings", "set", "http.timeout", "45s")
	require.NoError(t, err)
	assert.Contains(t, out, "http.timeout = 45s")

	out, err = runCLI(t, dir, "settings", "get", "http.timeout")
	require.NoError(t, err)
	assert.Equal(t, "45s\n", out)

	_, err = os.Stat(filepath.Join(dir, "settings.toml"))
	assert.NoError(t, err)

	_, err = runCLI(t, dir, "settings", "unset", "http.timeout")
	require.NoError(t, err)

	_, err = runCLI(t, dir, "settings", "get", "http.timeout")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSettings_ListJSON(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "settings", "set", "bulk.batch_size", "5")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "settings", "set", "mixpanel.region", "eu")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "-f", "json", "settings", "list")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "eu", got["mixpanel.region"])
	assert.EqualValues(t, 5, got["bulk.batch_size"])
}

func TestSettings_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown key", key: "search.mode", value: "hybrid"},
		{name: "bad format", key: "output.format", value: "yaml"},
		{name: "bad region", key: "mixpanel.region", value: "apac"},
		{name: "bad batch size", key: "bulk.batch_size", value: "0"},
		{name: "bad timeout", key: "http.timeout", value: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, t.TempDir(), "settings", "set", tt.key, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestSettings_OutputFormatDefault(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "settings", "set", "output.format", "table")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "stripe", "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")

	// The flag wins over the setting.
	out, err = runCLI(t, dir, "-f", "json", "stripe", "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "[")
}

func TestSettings_Path(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "settings", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "settings.toml")+"\n", out)
}
