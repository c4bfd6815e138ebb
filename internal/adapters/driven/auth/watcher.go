package auth

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/connect-cli/internal/logger"
)

// TokensFileName is the token file inside a profile directory.
const TokensFileName = "tokens.json"

// debounce groups the burst of events an atomic rename produces.
const debounce = 100 * time.Millisecond

// WatchTokens calls onChange whenever tokens.json in dir is written,
// created or replaced. It blocks until ctx is done. dir must exist.
func WatchTokens(ctx context.Context, dir string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: atomic writes replace the file's inode.
	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		target = filepath.Join(dir, TokensFileName)
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("token watcher closed")
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			logger.Debug("tokens changed in %s", dir)
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("token watcher closed")
			}
			logger.Warn("token watcher: %v", err)
		}
	}
}
