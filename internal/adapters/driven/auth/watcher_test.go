package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchTokens_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchTokens(ctx, dir, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokensFileName), []byte(`{"access_token":"a"}`), 0o600))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchTokens_MissingDir(t *testing.T) {
	err := WatchTokens(context.Background(), filepath.Join(t.TempDir(), "missing"), func() {})
	assert.Error(t, err)
}
