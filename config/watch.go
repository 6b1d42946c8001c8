package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a config file when it changes on disk. Editors often
// replace files instead of writing them, so the parent directory is watched
// and events are filtered by name. Bursts of events within the debounce
// window produce a single reload.
type Watcher struct {
	path     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	updates  chan *Config
	log      *slog.Logger
}

func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher: watching %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		fs:       fw,
		updates:  make(chan *Config, 1),
		log:      logger.With("config", abs),
	}, nil
}

// Updates delivers reloaded configs. Only the newest pending config is
// kept; the render thread drains it between frames.
func (w *Watcher) Updates() <-chan *Config { return w.updates }

// Run processes file events until ctx is done. Invalid files are logged and
// skipped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config: watch error", "err", err)
		case <-timer.C:
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn("config: reload rejected", "err", err)
				continue
			}
			w.log.Info("config: reloaded")
			w.publish(cfg)
		}
	}
}

func (w *Watcher) publish(cfg *Config) {
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
}
