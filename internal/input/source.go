// Package input samples keyboard and mouse-button state for the hotkey
// scheduler. Every backend reports codes in the evdev key space.
package input

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"hotkeysched/internal/keys"
)

// ErrUnsupportedPlatform is returned when no input backend exists for the
// running OS.
var ErrUnsupportedPlatform = errors.New("input: no input backend for this platform")

// Backend names accepted by Open.
const (
	BackendAuto  = "auto"
	BackendEvdev = "evdev"
	BackendAsync = "async"
)

// Source reports which keys are held right now.
type Source interface {
	Sample() (keys.Snapshot, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is one of BackendAuto, BackendEvdev or BackendAsync.
	// Empty means BackendAuto.
	Backend string

	// Device pins the evdev backend to one /dev/input/event* path. Empty
	// means every keyboard-capable physical device.
	Device string

	// Codes lists the codes a polling backend should query. Modifier keys are
	// always queried. Nil means every code the backend can map.
	Codes func() []keys.Code
}

// DeviceInfo describes one input device for --list-devices.
type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	HasKeys   bool
}

// Open returns the Source for opts.Backend on the running platform.
func Open(opts Options) (Source, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendAuto
	}
	switch backend {
	case BackendAuto, BackendEvdev, BackendAsync:
	default:
		return nil, fmt.Errorf("input: unknown backend %q", opts.Backend)
	}
	opts.Backend = backend
	return openPlatform(opts)
}

// StateTable is a goroutine-safe set of held codes. Event-driven backends
// feed it from reader goroutines and tests drive it directly.
type StateTable struct {
	mu      sync.RWMutex
	pressed map[keys.Code]struct{}
}

// NewStateTable creates an empty table.
func NewStateTable() *StateTable {
	return &StateTable{pressed: make(map[keys.Code]struct{})}
}

// Press marks codes as held.
func (t *StateTable) Press(codes ...keys.Code) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range codes {
		t.pressed[c] = struct{}{}
	}
}

// Release marks codes as not held.
func (t *StateTable) Release(codes ...keys.Code) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range codes {
		delete(t.pressed, c)
	}
}

// Set replaces the held set with exactly codes.
func (t *StateTable) Set(codes ...keys.Code) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.pressed)
	for _, c := range codes {
		t.pressed[c] = struct{}{}
	}
}

// Apply records one key event. value follows evdev: 0 release, 1 press,
// 2 autorepeat.
func (t *StateTable) Apply(code keys.Code, value int32) {
	switch value {
	case 0:
		t.Release(code)
	case 1, 2:
		t.Press(code)
	}
}

// Sample returns the held set. It never fails.
func (t *StateTable) Sample() (keys.Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	codes := make([]keys.Code, 0, len(t.pressed))
	for c := range t.pressed {
		codes = append(codes, c)
	}
	return keys.NewSnapshot(codes...), nil
}

// Close is a no-op.
func (t *StateTable) Close() error { return nil }

// modifierCodes are queried by polling backends on every sample.
var modifierCodes = []keys.Code{
	keys.KeyLeftCtrl, keys.KeyRightCtrl,
	keys.KeyLeftShift, keys.KeyRightShift,
	keys.KeyLeftAlt, keys.KeyRightAlt,
	keys.KeyLeftMeta, keys.KeyRightMeta,
}

// pollCodes merges the requested codes with the modifier keys, without
// duplicates.
func pollCodes(codes func() []keys.Code, all []keys.Code) []keys.Code {
	if codes == nil {
		return all
	}
	requested := codes()
	out := make([]keys.Code, 0, len(requested)+len(modifierCodes))
	seen := make(map[keys.Code]struct{}, cap(out))
	for _, group := range [][]keys.Code{modifierCodes, requested} {
		for _, c := range group {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
