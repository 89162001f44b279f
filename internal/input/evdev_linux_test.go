//go:build linux

package input

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"hotkeysched/internal/keys"
)

func TestOpenAsyncOnLinux(t *testing.T) {
	_, err := Open(Options{Backend: BackendAsync})
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("Open(async) error = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestOpenEvdevMissingDevice(t *testing.T) {
	if _, err := OpenEvdev("/dev/input/does-not-exist"); err == nil {
		t.Fatal("OpenEvdev(missing) expected error")
	}
}

func TestEvdevSampleWithoutDevices(t *testing.T) {
	s := &EvdevSource{done: make(chan struct{})}
	if _, err := s.Sample(); !errors.Is(err, ErrNoDevices) {
		t.Fatalf("Sample() error = %v, want ErrNoDevices", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestEvdevSampleMergesLiveReaders(t *testing.T) {
	keyboard := &deviceReader{path: "kbd", state: NewStateTable()}
	keyboard.alive.Store(true)
	keyboard.state.Press(keys.KeyF3)

	gone := &deviceReader{path: "gone", state: NewStateTable()}
	gone.state.Press(keys.KeyF4)

	s := &EvdevSource{readers: []*deviceReader{keyboard, gone}}
	snap, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if !snap.Pressed(keys.KeyF3) || snap.Pressed(keys.KeyF4) {
		t.Fatalf("Sample() = %v, want only F3 from the live reader", snap.Codes())
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wouldBlock bool
		closed     bool
	}{
		{name: "EAGAIN", err: syscall.EAGAIN, wouldBlock: true},
		{name: "wrapped EAGAIN", err: fmt.Errorf("read: %w", syscall.EAGAIN), wouldBlock: true},
		{name: "ENODEV", err: syscall.ENODEV, closed: true},
		{name: "EBADF", err: syscall.EBADF, closed: true},
		{name: "os.ErrClosed", err: os.ErrClosed, closed: true},
		{name: "EIO", err: syscall.EIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWouldBlockError(tt.err); got != tt.wouldBlock {
				t.Errorf("isWouldBlockError() = %v, want %v", got, tt.wouldBlock)
			}
			if got := isDeviceClosedError(tt.err); got != tt.closed {
				t.Errorf("isDeviceClosedError() = %v, want %v", got, tt.closed)
			}
		})
	}
}
