package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce groups the bursts of events editors produce on save.
const reloadDebounce = 500 * time.Millisecond

// watch reloads the definitions whenever a file under one of the definition paths changes.
func (c *Client) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dirs := watchDirs(c.cfg.CommandsPath, c.cfg.PermissionsPath, c.cfg.EventsPath)
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			c.log.Warn().Err(err).Str("path", dir).Msg("Failed to watch definitions")
		}
	}
	if len(w.WatchList()) == 0 {
		return nil
	}
	c.log.Info().Strs("paths", w.WatchList()).Msg("Watching definitions")

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			c.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Definitions changed")
			timer.Reset(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn().Err(err).Msg("Definitions watcher error")
		case <-timer.C:
			_ = c.Reload(ctx)
		}
	}
}

// watchDirs returns the directories to watch: the paths themselves when they are
// directories, their parents otherwise. Empty paths are skipped.
func watchDirs(paths ...string) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Clean(p)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			dir = filepath.Dir(dir)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
