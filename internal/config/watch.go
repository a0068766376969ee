package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ixwindow/ixwindow/internal/logger"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the config when its file changes and publishes each
// successfully validated result on Updates.
type Watcher struct {
	path    string
	wm      WM
	updates chan *Config
}

// NewWatcher creates a watcher for path; it does nothing until Serve runs.
func NewWatcher(path string, wm WM) *Watcher {
	if canon, err := canonicalPath(path); err == nil {
		path = canon
	}
	return &Watcher{
		path:    path,
		wm:      wm,
		updates: make(chan *Config, 1),
	}
}

// Updates delivers reloaded configs. Only the latest pending one is kept.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

func (w *Watcher) String() string {
	return "config-watcher"
}

// Serve watches the directory containing the config file until ctx ends.
// Watching the directory keeps working across editors that replace the file.
func (w *Watcher) Serve(ctx context.Context) error {
	log := logger.WithComponent("config")

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			log.Warn().Err(err).Msg("config watch error")

		case <-debounce:
			debounce = nil
			cfg, err := Load(w.path, w.wm)
			if err != nil {
				log.Warn().Err(err).Msg("config reload rejected")
				continue
			}
			log.Info().Str("path", w.path).Msg("config reloaded")
			w.publish(cfg)
		}
	}
}

// publish replaces any unconsumed update with cfg.
func (w *Watcher) publish(cfg *Config) {
	for {
		select {
		case w.updates <- cfg:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}
