// Package notify delivers hotkey notifications from the poll goroutine to
// subscribers running on their own goroutines.
package notify

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"hotkeysched/internal/hotkeys"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("notify: bus is closed")

// Handler consumes one notification.
type Handler func(n hotkeys.Notification)

// Bus fans notifications out to subscribers. Emit never blocks and never
// drops: every subscriber owns an unbounded queue drained by one goroutine,
// so each handler sees notifications in emit order, exactly once.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription is one registered handler.
type Subscription struct {
	bus     *Bus
	name    string
	handler Handler
	filter  map[hotkeys.Action]struct{} // nil accepts every action

	mu      sync.Mutex
	queue   []hotkeys.Notification
	ready   chan struct{} // capacity 1; signals queue non-empty
	stopped bool
	done    chan struct{}

	closeOnce sync.Once
}

// Subscribe registers handler for the given actions, or for every action
// when none are given. The handler runs on a goroutine owned by the
// subscription.
func (b *Bus) Subscribe(name string, handler Handler, actions ...hotkeys.Action) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("notify: handler is required")
	}
	sub := &Subscription{
		bus:     b,
		name:    name,
		handler: handler,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if len(actions) > 0 {
		sub.filter = make(map[hotkeys.Action]struct{}, len(actions))
		for _, a := range actions {
			sub.filter[a] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.subs[sub] = struct{}{}
	b.wg.Go(sub.run)
	slog.Debug("[DEBUG-NOTIFY] subscriber added", "name", name, "actions", len(actions))
	return sub, nil
}

// Emit queues n for every matching subscriber. It implements
// hotkeys.Emitter and is safe to call from any goroutine.
func (b *Bus) Emit(n hotkeys.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		slog.Debug("[DEBUG-NOTIFY] emit after close ignored", "action", n.Action.String())
		return
	}
	for sub := range b.subs {
		if sub.accepts(n.Action) {
			sub.enqueue(n)
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops accepting notifications, lets every subscriber finish what is
// already queued, and waits for their goroutines to exit.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.finish()
	}
	b.wg.Wait()
}

func (s *Subscription) accepts(a hotkeys.Action) bool {
	if s.filter == nil {
		return true
	}
	_, ok := s.filter[a]
	return ok
}

func (s *Subscription) enqueue(n hotkeys.Notification) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, n)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// finish marks the subscription as draining: queued items are still
// delivered, then run exits.
func (s *Subscription) finish() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Close removes the subscription. Notifications already queued are still
// delivered. Close must not be called from the subscription's own handler.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		s.finish()
		<-s.done
		slog.Debug("[DEBUG-NOTIFY] subscriber removed", "name", s.name)
	})
}

// Name returns the label given to Subscribe.
func (s *Subscription) Name() string { return s.name }

func (s *Subscription) run() {
	defer close(s.done)
	for range s.ready {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				stopped := s.stopped
				s.queue = nil
				s.mu.Unlock()
				if stopped {
					return
				}
				break
			}
			n := s.queue[0]
			s.queue[0] = hotkeys.Notification{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.deliver(n)
		}
	}
}

func (s *Subscription) deliver(n hotkeys.Notification) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] notification handler panicked",
				"subscriber", s.name,
				"action", n.Action.String(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.handler(n)
}
