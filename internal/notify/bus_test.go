package notify

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hotkeysched/internal/hotkeys"
	"hotkeysched/internal/testutil"
)

type collector struct {
	mu  sync.Mutex
	got []hotkeys.Notification
}

func (c *collector) handle(n hotkeys.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
}

func (c *collector) snapshot() []hotkeys.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hotkeys.Notification(nil), c.got...)
}

func note(action hotkeys.Action, param int) hotkeys.Notification {
	return hotkeys.Notification{Action: action, Param: param, HasParam: action.Parameterized(), Time: time.Now()}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var c collector
	if _, err := bus.Subscribe("ui", c.handle); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for slot := 1; slot <= hotkeys.NumStateSlots; slot++ {
		bus.Emit(note(hotkeys.ActionStateLoadSlot, slot))
	}
	if !testutil.WaitForCondition(t, time.Second, func() bool { return len(c.snapshot()) == hotkeys.NumStateSlots }) {
		t.Fatalf("delivered %d notifications, want %d", len(c.snapshot()), hotkeys.NumStateSlots)
	}
	for i, n := range c.snapshot() {
		if n.Param != i+1 {
			t.Fatalf("notification %d has param %d, want %d", i, n.Param, i+1)
		}
	}
}

func TestBusFilter(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var pauses, all collector
	if _, err := bus.Subscribe("pause", pauses.handle, hotkeys.ActionTogglePause); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Subscribe("all", all.handle); err != nil {
		t.Fatal(err)
	}

	bus.Emit(note(hotkeys.ActionOpen, 0))
	bus.Emit(note(hotkeys.ActionTogglePause, 0))
	bus.Emit(note(hotkeys.ActionStep, 0))

	if !testutil.WaitForCondition(t, time.Second, func() bool { return len(all.snapshot()) == 3 }) {
		t.Fatalf("all subscriber got %d, want 3", len(all.snapshot()))
	}
	got := pauses.snapshot()
	if len(got) != 1 || got[0].Action != hotkeys.ActionTogglePause {
		t.Fatalf("filtered subscriber got %+v", got)
	}
}

func TestEmitDoesNotBlockOnSlowHandler(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	var delivered atomic.Int32
	if _, err := bus.Subscribe("slow", func(hotkeys.Notification) {
		<-release
		delivered.Add(1)
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		for range 1000 {
			bus.Emit(note(hotkeys.ActionScreenShot, 0))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked behind a slow handler")
	}

	close(release)
	bus.Close()
	if got := delivered.Load(); got != 1000 {
		t.Fatalf("delivered %d after Close, want 1000", got)
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelError)
	bus := NewBus()
	defer bus.Close()

	var calls atomic.Int32
	if _, err := bus.Subscribe("fragile", func(n hotkeys.Notification) {
		if calls.Add(1) == 1 {
			panic("handler bug")
		}
	}); err != nil {
		t.Fatal(err)
	}

	bus.Emit(note(hotkeys.ActionReset, 0))
	bus.Emit(note(hotkeys.ActionReset, 0))
	if !testutil.WaitForCondition(t, time.Second, func() bool { return calls.Load() == 2 }) {
		t.Fatalf("handler called %d times, want 2", calls.Load())
	}
	if !strings.Contains(logBuf.String(), "notification handler panicked") {
		t.Fatalf("panic not logged:\n%s", logBuf.String())
	}
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe("temp", c.handle)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Name() != "temp" || bus.Len() != 1 {
		t.Fatalf("Name() = %q, Len() = %d", sub.Name(), bus.Len())
	}

	bus.Emit(note(hotkeys.ActionExit, 0))
	sub.Close()
	sub.Close()
	if got := len(c.snapshot()); got != 1 {
		t.Fatalf("queued notification lost on Close: got %d", got)
	}
	if bus.Len() != 0 {
		t.Fatalf("Len() = %d after Close, want 0", bus.Len())
	}

	bus.Emit(note(hotkeys.ActionExit, 0))
	time.Sleep(20 * time.Millisecond)
	if got := len(c.snapshot()); got != 1 {
		t.Fatalf("closed subscription still receiving: got %d", got)
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	var c collector
	if _, err := bus.Subscribe("ui", c.handle); err != nil {
		t.Fatal(err)
	}
	bus.Close()
	bus.Close()

	bus.Emit(note(hotkeys.ActionExit, 0))
	if len(c.snapshot()) != 0 {
		t.Fatal("notification delivered after Close")
	}
	if _, err := bus.Subscribe("late", c.handle); !errors.Is(err, ErrClosed) {
		t.Fatalf("Subscribe after Close error = %v, want ErrClosed", err)
	}
}

func TestSubscribeRequiresHandler(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	if _, err := bus.Subscribe("nil", nil); err == nil {
		t.Fatal("Subscribe(nil) expected error")
	}
}

func TestBusImplementsEmitter(t *testing.T) {
	var _ hotkeys.Emitter = NewBus()
}
