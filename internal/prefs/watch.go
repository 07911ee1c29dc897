// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watch reloads the preferences whenever the file changes, until ctx is
// done. The directory is watched so atomic replaces are seen. In-memory
// stores return immediately.
func (s *Store) Watch(ctx context.Context) error {
	return s.watch(ctx, defaultDebounce)
}

func (s *Store) watch(ctx context.Context, debounce time.Duration) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir, name := filepath.Split(filepath.Clean(s.path))
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch preferences dir: %w", err)
	}
	s.logger.Info().Str("event", "prefs.watcher_started").Str("path", s.path).Msg("watching preferences file")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("event", "prefs.watcher_stopped").Msg("preferences watcher stopped")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logger.Error().Err(err).Str("event", "prefs.reload_failed").Msg("preferences reload failed")
				continue
			}
			s.logger.Info().Str("event", "prefs.reloaded").Msg("preferences reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Str("event", "prefs.watcher_error").Msg("preferences watcher error")
		}
	}
}
