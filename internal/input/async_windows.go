//go:build windows

package input

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sys/windows"

	"hotkeysched/internal/keys"
)

var (
	user32DLL            = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32DLL.NewProc("GetAsyncKeyState")
)

func openPlatform(opts Options) (Source, error) {
	if opts.Backend == BackendEvdev {
		return nil, fmt.Errorf("input: backend %q is only available on Linux: %w", opts.Backend, ErrUnsupportedPlatform)
	}
	if opts.Device != "" {
		return nil, errors.New("input: --device is not supported by the async backend")
	}
	return OpenAsyncKeys(opts.Codes)
}

// AsyncKeySource polls GetAsyncKeyState for the requested codes on every
// Sample. It needs no background goroutine.
type AsyncKeySource struct {
	codes func() []keys.Code
	all   []keys.Code
}

// OpenAsyncKeys checks that user32.dll is loadable and returns a source that
// polls codes() plus the modifier keys. A nil codes polls every mapped key.
func OpenAsyncKeys(codes func() []keys.Code) (*AsyncKeySource, error) {
	// Pre-check DLL availability so that failures produce clean errors
	// instead of panics from LazyProc.Call.
	if err := user32DLL.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := procGetAsyncKeyState.Find(); err != nil {
		return nil, fmt.Errorf("GetAsyncKeyState is unavailable: %w", err)
	}

	all := make([]keys.Code, 0, len(virtualKeys))
	for c := range virtualKeys {
		all = append(all, c)
	}
	slices.Sort(all)
	return &AsyncKeySource{codes: codes, all: all}, nil
}

// Sample queries the current state of every polled code.
func (s *AsyncKeySource) Sample() (keys.Snapshot, error) {
	var held []keys.Code
	for _, c := range pollCodes(s.codes, s.all) {
		vk, ok := virtualKeys[c]
		if !ok {
			continue
		}
		state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
		if uint16(state)&0x8000 != 0 {
			held = append(held, c)
		}
	}
	return keys.NewSnapshot(held...), nil
}

// Close is a no-op; nothing is held open between samples.
func (s *AsyncKeySource) Close() error { return nil }

// ListDevices is not meaningful on Windows: the async backend reads the
// merged system keyboard state.
func ListDevices() ([]DeviceInfo, error) {
	return nil, fmt.Errorf("input: device listing requires the evdev backend: %w", ErrUnsupportedPlatform)
}
