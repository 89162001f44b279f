//go:build linux

package input

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"hotkeysched/internal/keys"
)

// ErrNoDevices is returned by Sample once every opened device has gone away.
var ErrNoDevices = errors.New("input: no readable input devices left")

func openPlatform(opts Options) (Source, error) {
	if opts.Backend == BackendAsync {
		return nil, fmt.Errorf("input: backend %q is only available on Windows: %w", opts.Backend, ErrUnsupportedPlatform)
	}
	return OpenEvdev(opts.Device)
}

// deviceReader tracks one opened device and the keys it reports as held.
type deviceReader struct {
	dev   *evdev.InputDevice
	path  string
	state *StateTable
	alive atomic.Bool
}

// EvdevSource reads key events from /dev/input/event* devices on background
// goroutines and samples the accumulated state.
type EvdevSource struct {
	readers []*deviceReader
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// OpenEvdev opens devicePath, or every keyboard-capable physical device when
// devicePath is empty, and starts one reader goroutine per device.
func OpenEvdev(devicePath string) (*EvdevSource, error) {
	devices, err := openKeyDevices(devicePath)
	if err != nil {
		return nil, err
	}

	s := &EvdevSource{done: make(chan struct{})}
	for _, dev := range devices {
		r := &deviceReader{dev: dev, path: dev.Path(), state: NewStateTable()}
		r.alive.Store(true)
		s.readers = append(s.readers, r)
		s.wg.Go(func() {
			s.readLoop(r)
		})
		slog.Debug("[DEBUG-INPUT] reading device", "path", r.path)
	}
	return s, nil
}

// Sample merges the held keys of every live device.
func (s *EvdevSource) Sample() (keys.Snapshot, error) {
	var held []keys.Code
	live := 0
	for _, r := range s.readers {
		if !r.alive.Load() {
			continue
		}
		live++
		snap, _ := r.state.Sample()
		held = append(held, snap.Codes()...)
	}
	if live == 0 {
		return keys.Snapshot{}, ErrNoDevices
	}
	return keys.NewSnapshot(held...), nil
}

// Close stops every reader and closes the devices.
func (s *EvdevSource) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		for _, r := range s.readers {
			if err := r.dev.Close(); err != nil && !isDeviceClosedError(err) {
				errs = append(errs, fmt.Errorf("close %s: %w", r.path, err))
			}
		}
	})
	return errors.Join(errs...)
}

func (s *EvdevSource) readLoop(r *deviceReader) {
	defer r.alive.Store(false)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		event, err := r.dev.ReadOne()
		if err != nil {
			if isWouldBlockError(err) {
				if !s.sleep(5 * time.Millisecond) {
					return
				}
				continue
			}
			if isDeviceClosedError(err) {
				slog.Warn("[DEBUG-INPUT] input device went away", "path", r.path, "error", err)
				return
			}
			if !s.sleep(25 * time.Millisecond) {
				return
			}
			continue
		}
		if event == nil {
			continue
		}
		switch {
		case event.Type == evdev.EV_KEY:
			r.state.Apply(keys.Code(event.Code), event.Value)
		case event.Type == evdev.EV_SYN && event.Code == evdev.SYN_DROPPED:
			// Kernel buffer overran; the held set can no longer be trusted.
			r.state.Set()
		}
	}
}

func (s *EvdevSource) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}

// ListDevices describes every input device the process can open.
func ListDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]DeviceInfo, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}
		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}
		devices = append(devices, DeviceInfo{
			Path:      path.Path,
			Name:      name,
			IsVirtual: deviceIsVirtual(dev, name),
			HasKeys:   len(dev.CapableEvents(evdev.EV_KEY)) > 0,
		})
		_ = dev.Close()
	}
	return devices, nil
}

func openKeyDevices(devicePath string) ([]*evdev.InputDevice, error) {
	if devicePath != "" {
		dev, err := openInputDevice(devicePath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", devicePath, err)
		}
		if len(dev.CapableEvents(evdev.EV_KEY)) == 0 {
			_ = dev.Close()
			return nil, fmt.Errorf("%s does not expose key/button events", devicePath)
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
		return []*evdev.InputDevice{dev}, nil
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]*evdev.InputDevice, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			slog.Debug("[DEBUG-INPUT] skipping unreadable device", "path", path.Path, "error", err)
			continue
		}
		name := path.Name
		if actualName, nameErr := dev.Name(); nameErr == nil && actualName != "" {
			name = actualName
		}
		if deviceIsVirtual(dev, name) || len(dev.CapableEvents(evdev.EV_KEY)) == 0 {
			_ = dev.Close()
			continue
		}
		if err := dev.NonBlock(); err != nil {
			_ = dev.Close()
			continue
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no readable input devices with key/button events found; check permissions on /dev/input or pass --device")
	}
	return devices, nil
}

func openInputDevice(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

func deviceIsVirtual(device *evdev.InputDevice, name string) bool {
	id, err := device.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"virtual", "uinput", "ydotool"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV) || errors.Is(err, os.ErrClosed)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
