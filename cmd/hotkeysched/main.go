// Command hotkeysched polls the keyboard, maps held key combinations to
// application actions and publishes one notification per press to the log
// and to a local WebSocket client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"hotkeysched/internal/config"
	"hotkeysched/internal/input"
	"hotkeysched/internal/sessionlog"
	"hotkeysched/internal/singleinstance"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without process-global side effects beyond the default
// logger. It returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "hotkeysched: %v\n", err)
		return 2
	}

	level := new(slog.LevelVar)
	d := newDaemon(opts, level)
	slog.SetDefault(newLogger(stderr, level, d.forwardLog))

	switch {
	case opts.initConfig:
		return runInitConfig(opts.configPath, stdout, stderr)
	case opts.listDevices:
		return runListDevices(stdout, stderr)
	}

	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		fmt.Fprintf(stderr, "hotkeysched: %v\n", err)
		return 1
	}
	if err != nil {
		slog.Warn("[DEBUG-HOTKEY] single-instance lock unavailable, continuing without it", "error", err)
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("[DEBUG-HOTKEY] single-instance lock release failed", "error", releaseErr)
		}
	}()

	cfg, err := config.EnsureFile(opts.configPath)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config unusable, running with defaults", "path", opts.configPath, "error", err)
	}

	if err := d.start(ctx, cfg, true); err != nil {
		slog.Error("[DEBUG-HOTKEY] startup failed", "error", err)
		return 1
	}

	<-ctx.Done()
	slog.Info("[DEBUG-HOTKEY] shutting down")
	if err := d.stop(); err != nil {
		slog.Error("[DEBUG-HOTKEY] shutdown incomplete", "error", err)
		return 1
	}
	return 0
}

// newLogger writes text logs to w at the level held by level and mirrors
// warnings and errors to the WebSocket client through tee.
func newLogger(w io.Writer, level *slog.LevelVar, tee sessionlog.EntryCallback) *slog.Logger {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, tee))
}

func runInitConfig(path string, stdout, stderr io.Writer) int {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "hotkeysched: %s already exists\n", path)
		return 1
	}
	if _, err := config.Save(path, config.DefaultConfig()); err != nil {
		fmt.Fprintf(stderr, "hotkeysched: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return 0
}

func runListDevices(stdout, stderr io.Writer) int {
	devices, err := input.ListDevices()
	if err != nil {
		fmt.Fprintf(stderr, "hotkeysched: %v\n", err)
		return 1
	}
	writeDeviceTable(stdout, devices)
	return 0
}

func writeDeviceTable(w io.Writer, devices []input.DeviceInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tKEYS\tVIRTUAL")
	for _, dev := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", dev.Path, dev.Name, yesNo(dev.HasKeys), yesNo(dev.IsVirtual))
	}
	_ = tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
