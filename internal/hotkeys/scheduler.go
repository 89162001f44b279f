package hotkeys

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hotkeysched/internal/keys"
	"hotkeysched/internal/workerutil"
)

// DefaultPollInterval matches a 60 Hz UI frame.
const DefaultPollInterval = time.Second / 60

// Sampler reports which keys are currently held.
type Sampler interface {
	Sample() (keys.Snapshot, error)
}

// Options configures a Scheduler. Source, Bindings and Emitter are required.
type Options struct {
	Source   Sampler
	Bindings BindingProvider
	Emitter  Emitter

	// PollInterval is the sleep between ticks. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Enabled gates every binding. Nil means always enabled.
	Enabled func() bool

	// Debugging reports whether a debugging session is attached. Debugging
	// actions are only evaluated while it returns true. Nil means never.
	Debugging func() bool

	// Now is used to timestamp notifications. Nil means time.Now.
	Now func() time.Time
}

// pollLoop holds the state of one started poll goroutine. When non-nil in
// Scheduler, the goroutine is running or has just given up after panics.
type pollLoop struct {
	stopRequested atomic.Bool
	finished      atomic.Bool
	wake          chan struct{}
	cancel        context.CancelFunc
	wg            sync.WaitGroup

	// Owned by the poll goroutine.
	edges         *EdgeTable
	generation    uint64
	sampleFailing bool
}

// Scheduler polls an input source and emits one Notification per rising edge
// of each configured binding.
type Scheduler struct {
	opts Options
	// recovery tunes panic restarts; zero values use the workerutil defaults.
	recovery workerutil.RecoveryOptions

	mu     sync.Mutex
	active *pollLoop // nil when stopped
}

// NewScheduler validates opts and returns a stopped Scheduler.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, errors.New("hotkeys: input source is required")
	}
	if opts.Bindings == nil {
		return nil, errors.New("hotkeys: binding provider is required")
	}
	if opts.Emitter == nil {
		return nil, errors.New("hotkeys: emitter is required")
	}
	if opts.PollInterval < 0 {
		return nil, errors.New("hotkeys: poll interval must not be negative")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{opts: opts}, nil
}

// PollInterval returns the effective sleep between ticks.
func (s *Scheduler) PollInterval() time.Duration { return s.opts.PollInterval }

// Start spawns the poll goroutine. It is a no-op while already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		if !s.active.finished.Load() {
			slog.Debug("[DEBUG-HOTKEY] start ignored, poll loop already running")
			return
		}
		// The previous loop exhausted its restarts; reap it before replacing.
		s.stopLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &pollLoop{
		wake:   make(chan struct{}),
		cancel: cancel,
		edges:  NewEdgeTable(),
	}
	s.active = loop

	workerutil.RunWithPanicRecovery(ctx, "hotkey-poll", &loop.wg, func(ctx context.Context) {
		s.run(ctx, loop)
	}, workerutil.RecoveryOptions{
		InitialBackoff: s.recovery.InitialBackoff,
		MaxBackoff:     s.recovery.MaxBackoff,
		MaxRetries:     s.recovery.MaxRetries,
		IsShutdown:     loop.stopRequested.Load,
		OnFatal: func(string, int) {
			loop.finished.Store(true)
		},
	})
	slog.Debug("[DEBUG-HOTKEY] poll loop started", "interval", s.opts.PollInterval)
}

// Stop asks the poll goroutine to exit and waits for it. An in-flight tick
// completes first. Stop is a no-op when the scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a poll goroutine is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && !s.active.finished.Load()
}

func (s *Scheduler) stopLocked() {
	if s.active == nil {
		return
	}
	loop := s.active
	s.active = nil

	// Cancel before waiting so a restart backoff in progress ends at once.
	loop.stopRequested.Store(true)
	close(loop.wake)
	loop.cancel()
	loop.wg.Wait()
	slog.Debug("[DEBUG-HOTKEY] poll loop stopped")
}

func (s *Scheduler) run(ctx context.Context, loop *pollLoop) {
	for !loop.stopRequested.Load() {
		s.tick(loop)

		timer := time.NewTimer(s.opts.PollInterval)
		select {
		case <-timer.C:
		case <-loop.wake:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// tick runs one full scan. It never returns early once started.
func (s *Scheduler) tick(loop *pollLoop) {
	snap, err := s.opts.Source.Sample()
	if err != nil {
		if !loop.sampleFailing {
			slog.Warn("[DEBUG-HOTKEY] input sample failed, treating all actions as inactive", "error", err)
			loop.sampleFailing = true
		}
		snap = keys.Snapshot{}
	} else if loop.sampleFailing {
		slog.Info("[DEBUG-HOTKEY] input sampling recovered")
		loop.sampleFailing = false
	}

	// Sets from other providers carry no generation and are pruned every tick.
	set := s.opts.Bindings.Bindings()
	if set.generation == 0 || set.generation != loop.generation {
		loop.edges.Retain(set)
		loop.generation = set.generation
	}

	enabled := s.opts.Enabled == nil || s.opts.Enabled()
	s.scan(loop, set.Primary, snap, enabled)

	debugging := enabled && s.opts.Debugging != nil && s.opts.Debugging()
	s.scan(loop, set.Debugging, snap, debugging)
}

func (s *Scheduler) scan(loop *pollLoop, bindings []ActionBinding, snap keys.Snapshot, gate bool) {
	for _, ab := range bindings {
		active := gate && ab.Binding.ActiveIn(snap)
		if !loop.edges.Observe(ab, active) {
			continue
		}
		n := newNotification(ab, s.opts.Now())
		slog.Debug("[DEBUG-HOTKEY] action triggered", "binding", ab.String(), "id", n.ID)
		s.opts.Emitter.Emit(n)
	}
}
