package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces the burst of events an editor produces
// for a single save.
const DefaultReloadDebounce = 200 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk and hands the
// result to a callback. Parse failures keep the previous config in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Config)

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewWatcher watches the directory containing path, so that atomic
// replace-by-rename saves are seen. onChange runs on the watcher goroutine.
func NewWatcher(path string, debounce time.Duration, onChange func(Config)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("config watcher: onChange callback is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watcher: resolve path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config watcher: watch %s: %w", filepath.Dir(absPath), err)
	}

	w := &Watcher{
		path:     absPath,
		debounce: debounce,
		onChange: onChange,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	w.wg.Go(w.loop)
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", absPath)
	return w, nil
}

// Close stops watching and waits for an in-flight reload to finish.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		// Moved away or mid-replace; a Create event follows if it comes back.
		slog.Debug("[DEBUG-CONFIG] config file not readable, skipping reload", "path", w.path, "error", err)
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	slog.Info("[DEBUG-CONFIG] config reloaded", "path", w.path, "hotkeys", len(cfg.Hotkeys))
	w.onChange(cfg)
}
