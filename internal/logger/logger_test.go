package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func capture(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		SetVerbose(false)
		_ = SetFormat(FormatConsole)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels_Verbose(t *testing.T) {
	buf := capture(t, true)

	Debug("fetching %s", "customers")
	Info("page %d", 2)
	Warn("slow")

	assert.Equal(t, "[DEBUG] fetching customers\n[INFO] page 2\n[WARN] slow\n", buf.String())
}

func TestLevels_Quiet(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("token for profile %q expires soon", "work")

	assert.Equal(t, "[WARN] token for profile \"work\" expires soon\n", buf.String())
}

func TestL_StructuredFields(t *testing.T) {
	buf := capture(t, true)

	L().Debug("http request", zap.String("method", "GET"), zap.Int("status", 200))

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] http request")
	assert.Contains(t, out, `"method": "GET"`)
	assert.Contains(t, out, `"status": 200`)
}

func TestSetFormat_JSON(t *testing.T) {
	buf := capture(t, false)
	require.NoError(t, SetFormat("JSON"))

	L().Warn("rate limited", zap.String("connector", "stripe"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "rate limited", line["msg"])
	assert.Equal(t, "stripe", line["connector"])
	assert.Contains(t, line, "ts")
}

func TestSetFormat_Unknown(t *testing.T) {
	capture(t, false)
	assert.Error(t, SetFormat("xml"))
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(i%2 == 0)
			Debug("concurrent %d", i)
			_ = IsVerbose()
		}()
	}
	wg.Wait()
}
