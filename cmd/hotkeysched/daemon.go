package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hotkeysched/internal/config"
	"hotkeysched/internal/hotkeys"
	"hotkeysched/internal/input"
	"hotkeysched/internal/keys"
	"hotkeysched/internal/notify"
	"hotkeysched/internal/wsserver"
)

// shutdownWaitTimeout bounds each blocking step of stop.
const shutdownWaitTimeout = 5 * time.Second

// openSourceFn is replaced in tests.
var openSourceFn = input.Open

// daemon owns every long-lived component and their start/stop order.
type daemon struct {
	opts  cliOptions
	level *slog.LevelVar

	store     *hotkeys.BindingStore
	source    input.Source
	bus       *notify.Bus
	hub       *wsserver.Hub
	scheduler *hotkeys.Scheduler
	watcher   *config.Watcher

	enabled atomic.Bool
	// logHub receives teed log records once the hub is up.
	logHub atomic.Pointer[wsserver.Hub]

	// mu guards applied, the last config handed to the components.
	mu      sync.Mutex
	applied config.Config
}

func newDaemon(opts cliOptions, level *slog.LevelVar) *daemon {
	return &daemon{opts: opts, level: level}
}

// forwardLog is the sessionlog callback. It drops records until the hub is
// running and never blocks.
func (d *daemon) forwardLog(ts time.Time, level slog.Level, msg string, source string) {
	if hub := d.logHub.Load(); hub != nil {
		hub.BroadcastLog(ts, level, msg, source)
	}
}

// start brings the components up in dependency order. On failure everything
// already started is stopped again.
func (d *daemon) start(ctx context.Context, cfg config.Config, watch bool) (err error) {
	defer func() {
		if err != nil {
			if stopErr := d.stop(); stopErr != nil {
				slog.Warn("[DEBUG-HOTKEY] cleanup after failed start", "error", stopErr)
			}
		}
	}()

	cfg = d.opts.applyOverrides(cfg)
	d.mu.Lock()
	d.applied = cfg
	d.mu.Unlock()
	d.setLevel(cfg.LogLevel)
	d.enabled.Store(cfg.HotkeysEnabled)

	d.store = hotkeys.NewBindingStore(config.ResolveBindings(cfg))

	d.source, err = openSourceFn(input.Options{
		Backend: cfg.Input.Backend,
		Device:  cfg.Input.Device,
		Codes:   func() []keys.Code { return d.store.Bindings().Codes() },
	})
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}

	d.bus = notify.NewBus()
	if _, err = d.bus.Subscribe("log", logNotification); err != nil {
		return err
	}

	var debugging func() bool
	if !strings.EqualFold(cfg.WebSocketAddr, wsOff) {
		d.hub = wsserver.NewHub(wsserver.HubOptions{Addr: cfg.WebSocketAddr})
		if err = d.hub.Start(ctx); err != nil {
			return err
		}
		if _, err = d.bus.Subscribe("websocket", d.hub.BroadcastNotification); err != nil {
			return err
		}
		d.logHub.Store(d.hub)
		debugging = d.hub.DebuggerAttached
	} else {
		slog.Info("[DEBUG-WS] WebSocket bridge disabled; debugging hotkeys stay inactive")
	}

	d.scheduler, err = hotkeys.NewScheduler(hotkeys.Options{
		Source:       d.source,
		Bindings:     d.store,
		Emitter:      d.bus,
		PollInterval: cfg.PollInterval(),
		Enabled:      d.enabled.Load,
		Debugging:    debugging,
	})
	if err != nil {
		return err
	}
	d.scheduler.Start()

	if watch {
		d.watcher, err = config.NewWatcher(d.opts.configPath, config.DefaultReloadDebounce, d.applyConfig)
		if err != nil {
			return err
		}
	}

	bindings := d.store.Bindings()
	slog.Info("[DEBUG-HOTKEY] hotkeysched running",
		"config", d.opts.configPath,
		"backend", cfg.Input.Backend,
		"pollInterval", cfg.PollInterval(),
		"primary", len(bindings.Primary),
		"debugging", len(bindings.Debugging),
		"websocket", d.wsURL(),
	)
	return nil
}

func (d *daemon) wsURL() string {
	if d.hub == nil {
		return wsOff
	}
	return d.hub.URL()
}

// applyConfig is the watcher callback. Bindings, the enabled flag and the log
// level take effect immediately; the rest needs a restart.
func (d *daemon) applyConfig(cfg config.Config) {
	cfg = d.opts.applyOverrides(cfg)

	d.mu.Lock()
	prev := d.applied
	d.applied = cfg
	d.mu.Unlock()

	d.store.Replace(config.ResolveBindings(cfg))
	if d.enabled.Swap(cfg.HotkeysEnabled) != cfg.HotkeysEnabled {
		slog.Info("[DEBUG-HOTKEY] hotkeys enabled changed", "enabled", cfg.HotkeysEnabled)
	}
	d.setLevel(cfg.LogLevel)

	for _, field := range restartRequired(prev, cfg) {
		slog.Warn("[WARN-CONFIG] change takes effect after restart", "field", field)
	}
}

// restartRequired lists the settings that differ between a and b but are
// fixed once the daemon is running.
func restartRequired(a, b config.Config) []string {
	var fields []string
	if a.PollIntervalMS != b.PollIntervalMS {
		fields = append(fields, "poll_interval_ms")
	}
	if a.Input != b.Input {
		fields = append(fields, "input")
	}
	if a.WebSocketAddr != b.WebSocketAddr {
		fields = append(fields, "websocket_addr")
	}
	return fields
}

func (d *daemon) setLevel(name string) {
	if d.level == nil {
		return
	}
	level, err := parseLevel(name)
	if err != nil {
		return
	}
	d.level.Set(level)
}

// stop tears the components down in reverse dependency order: no new config
// reloads, no new notifications, drain subscribers, then close the hub and
// the input source. Safe on a partially started daemon.
func (d *daemon) stop() error {
	var errs []error

	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("config watcher: %w", err))
		}
	}
	if d.scheduler != nil {
		if !waitWithTimeout(d.scheduler.Stop, shutdownWaitTimeout) {
			errs = append(errs, errors.New("scheduler: timed out stopping poll loop"))
		}
	}
	if d.bus != nil {
		if !waitWithTimeout(d.bus.Close, shutdownWaitTimeout) {
			errs = append(errs, errors.New("notification bus: timed out draining subscribers"))
		}
	}
	d.logHub.Store(nil)
	if d.hub != nil {
		if err := d.hub.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.source != nil {
		if err := d.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("input source: %w", err))
		}
	}
	return errors.Join(errs...)
}

// logNotification is the always-on bus subscriber.
func logNotification(n hotkeys.Notification) {
	attrs := []any{"action", n.Action.String(), "id", n.ID}
	if n.HasParam {
		attrs = append(attrs, "param", n.Param)
	}
	slog.Info("[DEBUG-HOTKEY] hotkey", attrs...)
}

// waitWithTimeout runs waitFn and reports whether it returned within
// timeout. waitFn keeps running in the background after a timeout.
func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
