package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 100 * time.Millisecond

// Watch calls onChange after the catalog files change, coalescing bursts
// of events. It blocks until ctx is done.
func (s *Source) Watch(ctx context.Context, logger *zap.SugaredLogger, onChange func()) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files on save, so watch the directory
	dir := s.path
	if !isDir(dir) {
		dir = filepath.Dir(dir)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Infow("watching catalog", "path", s.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			logger.Debugw("catalog file changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("file watcher error", "error", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

func (s *Source) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !isDir(s.path) {
		return filepath.Clean(event.Name) == filepath.Clean(s.path)
	}
	ext := filepath.Ext(event.Name)
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}
