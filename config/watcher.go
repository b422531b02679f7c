package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/linchenxuan/tyto/event"
	"github.com/linchenxuan/tyto/log"
)

// Watcher watches one configuration file and publishes event.ReloadConfig
// with the freshly loaded *TytoCfg whenever the file changes. Files that no
// longer parse or validate are logged and not published, so subscribers only
// ever see usable configurations.
type Watcher struct {
	path     string
	pub      *event.Publisher
	watcher  *fsnotify.Watcher
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// WatchOption adjusts watcher behavior.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce sets how long the watcher waits after the last change event
// before reloading. Editors tend to fire several events per save; the
// default of 100ms folds them into one reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// NewWatcher creates a watcher for path that publishes reloads through pub.
// The watcher observes the parent directory rather than the file itself:
// editors often replace the file by writing a temp name and renaming over
// it, and a watch on the old inode would go quiet after the first save.
func NewWatcher(path string, pub *event.Publisher, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config: watch path is empty")
	}
	if pub == nil {
		return nil, fmt.Errorf("config: watcher requires a publisher")
	}

	options := &watchOptions{debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(options)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("config: watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		pub:      pub,
		watcher:  fsWatcher,
		debounce: options.debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// StartAsync begins watching on a background goroutine and returns
// immediately. Calling it twice is a no-op.
func (w *Watcher) StartAsync() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run()
}

// Stop ends watching and releases the filesystem watch. A pending debounced
// reload is cancelled.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	w.cancel()
	w.running = false
	return w.watcher.Close()
}

func (w *Watcher) run() {
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("config watch error")
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event, filename string) {
	if filepath.Base(ev.Name) != filename {
		return
	}
	// Write is a plain save, Create and Rename are the temp-file-and-rename
	// save strategies.
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload fires on the debounce timer goroutine.
func (w *Watcher) reload() {
	select {
	case <-w.ctx.Done():
		return
	default:
	}

	cfg, err := Load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("config reload rejected")
		return
	}
	if err := w.pub.Publish(event.ReloadConfig, cfg); err != nil {
		log.Warn().Err(err).Msg("config reload not delivered")
		return
	}
	log.Info().Str("path", w.path).Msg("config reloaded")
}
