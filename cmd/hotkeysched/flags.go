package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"hotkeysched/internal/config"
	"hotkeysched/internal/input"
)

// cliOptions holds command-line values. Empty strings and zero mean "use
// the config file".
type cliOptions struct {
	configPath  string
	initConfig  bool
	listDevices bool
	device      string
	backend     string
	logLevel    string
	wsAddr      string
	pollMS      int
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("hotkeysched", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: hotkeysched [flags]\n\nPolls the keyboard and publishes hotkey notifications.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "", "config file path (default "+config.DefaultPath()+")")
	fs.BoolVar(&opts.initConfig, "init-config", false, "write the default config file and exit")
	fs.BoolVar(&opts.listDevices, "list-devices", false, "list input devices and exit")
	fs.StringVar(&opts.device, "device", "", "read only this evdev device (e.g. /dev/input/event3)")
	fs.StringVar(&opts.backend, "backend", "", "input backend: auto, evdev or async")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&opts.wsAddr, "ws-addr", "", `WebSocket listen address, or "off"`)
	fs.IntVar(&opts.pollMS, "poll-ms", 0, "poll interval in milliseconds (1-1000)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := opts.validate(); err != nil {
		return opts, err
	}
	if opts.configPath == "" {
		opts.configPath = config.DefaultPath()
	}
	return opts, nil
}

func (o *cliOptions) validate() error {
	var errs []error
	if o.pollMS != 0 && (o.pollMS < 1 || o.pollMS > 1000) {
		errs = append(errs, fmt.Errorf("--poll-ms %d out of range 1-1000", o.pollMS))
	}

	o.backend = strings.ToLower(strings.TrimSpace(o.backend))
	switch o.backend {
	case "", input.BackendAuto, input.BackendEvdev, input.BackendAsync:
	default:
		errs = append(errs, fmt.Errorf("--backend %q: want auto, evdev or async", o.backend))
	}

	o.logLevel = strings.ToLower(strings.TrimSpace(o.logLevel))
	if o.logLevel != "" {
		if _, err := parseLevel(o.logLevel); err != nil {
			errs = append(errs, fmt.Errorf("--log-level: %w", err))
		}
	}

	o.wsAddr = strings.TrimSpace(o.wsAddr)
	if o.wsAddr != "" && !strings.EqualFold(o.wsAddr, wsOff) {
		if host, port, err := net.SplitHostPort(o.wsAddr); err != nil {
			errs = append(errs, fmt.Errorf("--ws-addr: %w", err))
		} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("--ws-addr: invalid port %q", port))
		} else if !config.IsLoopbackHost(host) {
			errs = append(errs, fmt.Errorf("--ws-addr: host %q is not a loopback address", host))
		}
	}
	return errors.Join(errs...)
}

// applyOverrides layers the command-line values over cfg and normalizes the
// result. It runs on every reload so flags keep precedence over the file.
func (o cliOptions) applyOverrides(cfg config.Config) config.Config {
	cfg = config.Clone(cfg)
	if o.pollMS != 0 {
		cfg.PollIntervalMS = o.pollMS
	}
	if o.backend != "" {
		cfg.Input.Backend = o.backend
	}
	if o.device != "" {
		cfg.Input.Device = o.device
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.wsAddr != "" {
		cfg.WebSocketAddr = o.wsAddr
	}
	return config.Normalize(cfg)
}

// wsOff disables the WebSocket bridge.
const wsOff = "off"

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
}
