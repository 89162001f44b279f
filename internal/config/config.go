package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"hotkeysched/internal/hotkeys"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond

	// DefaultPollIntervalMS polls at roughly 60 Hz.
	DefaultPollIntervalMS = 16
	minPollIntervalMS     = 1
	maxPollIntervalMS     = 1000

	// DefaultWebSocketAddr binds loopback with an OS-assigned port.
	DefaultWebSocketAddr = "127.0.0.1:0"
	// maxValidPort is the highest TCP/UDP port number (2^16 - 1).
	maxValidPort = 65535

	appDirName     = "hotkeysched"
	configFileName = "config.yaml"
)

var userHomeDirFn = os.UserHomeDir

var allowedBackends = map[string]struct{}{
	"auto":  {},
	"evdev": {},
	"async": {},
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Config is the on-disk scheduler configuration.
type Config struct {
	PollIntervalMS int            `yaml:"poll_interval_ms"`
	HotkeysEnabled bool           `yaml:"hotkeys_enabled"`
	Input          InputConfig    `yaml:"input"`
	WebSocketAddr  string         `yaml:"websocket_addr"`
	LogLevel       string         `yaml:"log_level"`
	Hotkeys        []HotkeyConfig `yaml:"hotkeys"`
}

// InputConfig selects the input backend.
type InputConfig struct {
	Backend string `yaml:"backend"`
	Device  string `yaml:"device,omitempty"`
}

// HotkeyConfig binds one action (and its slot or remote id) to a key
// combination. An empty Keys leaves the action unbound.
type HotkeyConfig struct {
	Action string `yaml:"action"`
	Param  *int   `yaml:"param,omitempty"`
	Keys   string `yaml:"keys"`
}

// PollInterval returns PollIntervalMS as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// DefaultConfig returns the stock bindings.
func DefaultConfig() Config {
	cfg := Config{
		PollIntervalMS: DefaultPollIntervalMS,
		HotkeysEnabled: true,
		Input:          InputConfig{Backend: "auto"},
		WebSocketAddr:  DefaultWebSocketAddr,
		LogLevel:       "info",
		Hotkeys: []HotkeyConfig{
			{Action: "open", Keys: "Ctrl+O"},
			{Action: "change-disc"},
			{Action: "eject-disc"},
			{Action: "refresh-game-list", Keys: "Ctrl+R"},
			{Action: "toggle-pause", Keys: "F10"},
			{Action: "stop", Keys: "ESC"},
			{Action: "reset"},
			{Action: "fullscreen", Keys: "Alt+ENTER"},
			{Action: "screenshot", Keys: "F9"},
			{Action: "exit"},
			{Action: "start-recording"},
			{Action: "export-recording"},
			{Action: "toggle-read-only"},
			{Action: "state-load-slot-selected", Keys: "F12"},
			{Action: "state-save-slot-selected", Keys: "Shift+F12"},
			{Action: "state-load-undo", Keys: "Shift+F9"},
			{Action: "state-save-undo"},
			{Action: "state-save-oldest"},
			{Action: "step", Keys: "F11"},
			{Action: "step-over", Keys: "F10"},
			{Action: "step-out", Keys: "Shift+F11"},
			{Action: "skip"},
			{Action: "show-pc"},
			{Action: "set-pc"},
			{Action: "toggle-breakpoint", Keys: "F9"},
			{Action: "add-breakpoint"},
		},
	}
	for slot := 1; slot <= 8; slot++ {
		fkey := "F" + strconv.Itoa(slot)
		cfg.Hotkeys = append(cfg.Hotkeys,
			HotkeyConfig{Action: "state-load-slot", Param: intPtr(slot), Keys: fkey},
			HotkeyConfig{Action: "state-save-slot", Param: intPtr(slot), Keys: "Shift+" + fkey},
		)
	}
	for remote := range hotkeys.NumWiiRemotes {
		cfg.Hotkeys = append(cfg.Hotkeys, HotkeyConfig{
			Action: "connect-wii-remote",
			Param:  intPtr(remote),
			Keys:   "Alt+F" + strconv.Itoa(5+remote),
		})
	}
	return cfg
}

func intPtr(v int) *int { return &v }

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// XDG_CONFIG_HOME, falling back to ~/.config, and then to os.TempDir() if
// the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			// Keep config path resolvable even in restricted environments.
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// Load reads the config file. A missing or empty file yields the defaults.
// Out-of-range values and unusable hotkey entries are logged and replaced or
// dropped; only I/O and YAML syntax errors are returned.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

// EnsureFile writes the default config if missing and returns the loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Hotkeys != nil {
		dst.Hotkeys = make([]HotkeyConfig, len(src.Hotkeys))
		for i, hk := range src.Hotkeys {
			dst.Hotkeys[i] = hk
			if hk.Param != nil {
				dst.Hotkeys[i].Param = intPtr(*hk.Param)
			}
		}
	}
	return dst
}

// Normalize returns a copy of cfg with the defaults and validation Load
// applies. Callers use it after layering values from other sources.
func Normalize(cfg Config) Config {
	cfg = Clone(cfg)
	applyDefaultsAndValidate(&cfg)
	return cfg
}

// Save normalizes cfg with the same rules as Load and writes it atomically.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	cfg = Normalize(cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", normalizedPath)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	// Atomic write: temp file + rename in same directory ensures
	// same-filesystem rename and prevents partial writes on crash.
	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath resolves path to an absolute file path and rejects
// directories.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}
	if info, err := os.Stat(absolutePath); err == nil && info.IsDir() {
		return "", fmt.Errorf("save config: %q is a directory", absolutePath)
	}
	return absolutePath, nil
}

// applyDefaultsAndValidate fills missing defaults and repairs cfg in place.
// MUTATES: cfg is directly modified.
// NOTE: non-fatal by policy. A bad value is logged and replaced so that a
// misconfigured file never prevents startup.
func applyDefaultsAndValidate(cfg *Config) {
	if isZeroConfig(*cfg) {
		*cfg = DefaultConfig()
		return
	}
	defaults := DefaultConfig()

	if cfg.PollIntervalMS == 0 {
		cfg.PollIntervalMS = defaults.PollIntervalMS
	} else if cfg.PollIntervalMS < minPollIntervalMS || cfg.PollIntervalMS > maxPollIntervalMS {
		slog.Warn("[WARN-CONFIG] poll_interval_ms out of range, using default",
			"configured", cfg.PollIntervalMS, "min", minPollIntervalMS, "max", maxPollIntervalMS)
		cfg.PollIntervalMS = defaults.PollIntervalMS
	}

	cfg.Input.Backend = strings.ToLower(strings.TrimSpace(cfg.Input.Backend))
	if cfg.Input.Backend == "" {
		cfg.Input.Backend = defaults.Input.Backend
	} else if _, ok := allowedBackends[cfg.Input.Backend]; !ok {
		slog.Warn("[WARN-CONFIG] unknown input.backend, using auto", "configured", cfg.Input.Backend)
		cfg.Input.Backend = defaults.Input.Backend
	}
	cfg.Input.Device = strings.TrimSpace(cfg.Input.Device)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	} else if _, ok := allowedLogLevels[cfg.LogLevel]; !ok {
		slog.Warn("[WARN-CONFIG] unknown log_level, using info", "configured", cfg.LogLevel)
		cfg.LogLevel = defaults.LogLevel
	}

	validateWebSocketAddr(cfg)
	cfg.Hotkeys = sanitizeHotkeys(cfg.Hotkeys)
}

// validateWebSocketAddr checks host:port syntax, port range and that the host
// is loopback. Invalid values fall back to DefaultWebSocketAddr. An explicit
// "off" disables the bridge and is kept as-is.
func validateWebSocketAddr(cfg *Config) {
	addr := strings.TrimSpace(cfg.WebSocketAddr)
	if addr == "" {
		cfg.WebSocketAddr = DefaultWebSocketAddr
		return
	}
	if strings.EqualFold(addr, "off") {
		cfg.WebSocketAddr = "off"
		return
	}
	host, portText, err := net.SplitHostPort(addr)
	if err == nil {
		var port int
		port, err = strconv.Atoi(portText)
		if err == nil && (port < 0 || port > maxValidPort) {
			err = fmt.Errorf("port %d out of range 0-%d", port, maxValidPort)
		}
	}
	if err == nil && !IsLoopbackHost(host) {
		err = fmt.Errorf("host %q is not a loopback address", host)
	}
	if err != nil {
		slog.Warn("[WARN-CONFIG] invalid websocket_addr, using default",
			"configured", addr, "default", DefaultWebSocketAddr, "error", err)
		cfg.WebSocketAddr = DefaultWebSocketAddr
		return
	}
	cfg.WebSocketAddr = addr
}

// IsLoopbackHost reports whether host is "localhost" or a loopback IP. An
// empty host (all interfaces) is not loopback.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// sanitizeHotkeys canonicalizes action names and key text and drops entries
// that can never fire: unknown actions, bad parameters and unparsable keys.
func sanitizeHotkeys(entries []HotkeyConfig) []HotkeyConfig {
	if entries == nil {
		return nil
	}
	out := make([]HotkeyConfig, 0, len(entries))
	for i, entry := range entries {
		action, err := hotkeys.ParseAction(entry.Action)
		if err != nil {
			slog.Warn("[WARN-CONFIG] dropping hotkey with unknown action", "index", i, "action", entry.Action)
			continue
		}
		entry.Action = action.String()

		param := 0
		if entry.Param != nil {
			param = *entry.Param
		}
		if action.Parameterized() && entry.Param == nil {
			slog.Warn("[WARN-CONFIG] dropping hotkey without required param", "index", i, "action", entry.Action)
			continue
		}
		if err := action.ValidateParam(param); err != nil {
			slog.Warn("[WARN-CONFIG] dropping hotkey with invalid param", "index", i, "error", err)
			continue
		}
		if !action.Parameterized() {
			entry.Param = nil
		} else {
			entry.Param = intPtr(param)
		}

		entry.Keys = strings.TrimSpace(entry.Keys)
		if entry.Keys != "" {
			binding, err := hotkeys.ParseBinding(entry.Keys)
			if err != nil {
				slog.Warn("[WARN-CONFIG] dropping hotkey with invalid keys", "index", i, "action", entry.Action, "error", err)
				continue
			}
			entry.Keys = binding.Normalized()
		}
		out = append(out, entry)
	}
	return out
}

// ResolveBindings converts the bound hotkey entries of cfg into action
// bindings. Entries that fail to resolve are logged and skipped.
func ResolveBindings(cfg Config) []hotkeys.ActionBinding {
	out := make([]hotkeys.ActionBinding, 0, len(cfg.Hotkeys))
	owners := make(map[string]string, len(cfg.Hotkeys))
	for i, entry := range cfg.Hotkeys {
		if strings.TrimSpace(entry.Keys) == "" {
			continue
		}
		action, err := hotkeys.ParseAction(entry.Action)
		if err != nil {
			slog.Warn("[WARN-CONFIG] skipping hotkey", "index", i, "error", err)
			continue
		}
		param := 0
		if entry.Param != nil {
			param = *entry.Param
		}
		ab, err := hotkeys.NewActionBinding(action, param, entry.Keys)
		if err != nil {
			slog.Warn("[WARN-CONFIG] skipping hotkey", "index", i, "action", entry.Action, "error", err)
			continue
		}

		// Primary and debugging sets are evaluated independently, so a key
		// shared across them is expected (F10 pause / step-over).
		scope := "primary"
		if action.Debugging() {
			scope = "debugging"
		}
		comboKey := scope + "/" + ab.Binding.Normalized()
		if prev, dup := owners[comboKey]; dup {
			slog.Warn("[WARN-CONFIG] key combination bound to multiple actions",
				"keys", ab.Binding.Normalized(), "first", prev, "second", ab.String())
		} else {
			owners[comboKey] = ab.String()
		}
		out = append(out, ab)
	}
	return out
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	// reflect.DeepEqual guards against field-addition drift that manual checks miss.
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
