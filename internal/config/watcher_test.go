package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hotkeysched/internal/testutil"
)

type reloadRecorder struct {
	mu   sync.Mutex
	cfgs []Config
}

func (r *reloadRecorder) record(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfgs = append(r.cfgs, cfg)
}

func (r *reloadRecorder) last() (Config, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cfgs) == 0 {
		return Config{}, 0
	}
	return r.cfgs[len(r.cfgs)-1], len(r.cfgs)
}

func startWatcher(t *testing.T, path string) *reloadRecorder {
	t.Helper()
	rec := &reloadRecorder{}
	w, err := NewWatcher(path, 20*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return rec
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, "poll_interval_ms: 10\n")
	rec := startWatcher(t, path)

	if err := os.WriteFile(path, []byte("poll_interval_ms: 30\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ok := testutil.WaitForCondition(t, 2*time.Second, func() bool {
		cfg, n := rec.last()
		return n > 0 && cfg.PollIntervalMS == 30
	})
	if !ok {
		t.Fatal("watcher did not deliver the rewritten config")
	}
}

func TestWatcherReloadsOnAtomicSave(t *testing.T) {
	path := writeConfigFile(t, "poll_interval_ms: 10\n")
	rec := startWatcher(t, path)

	cfg := DefaultConfig()
	cfg.PollIntervalMS = 42
	if _, err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	ok := testutil.WaitForCondition(t, 2*time.Second, func() bool {
		got, n := rec.last()
		return n > 0 && got.PollIntervalMS == 42
	})
	if !ok {
		t.Fatal("watcher missed a rename-based save")
	}
}

func TestWatcherKeepsPreviousOnParseError(t *testing.T) {
	path := writeConfigFile(t, "poll_interval_ms: 10\n")
	rec := startWatcher(t, path)

	if err := os.WriteFile(path, []byte("hotkeys: [broken\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, n := rec.last(); n != 0 {
		t.Fatalf("callback ran %d times for an unparsable file", n)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	path := writeConfigFile(t, "poll_interval_ms: 10\n")
	rec := startWatcher(t, path)

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, n := rec.last(); n != 0 {
		t.Fatalf("callback ran %d times for an unrelated file", n)
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := writeConfigFile(t, "poll_interval_ms: 10\n")
	rec := &reloadRecorder{}
	w, err := NewWatcher(path, 150*time.Millisecond, rec.record)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	for i := range 5 {
		content := []byte("poll_interval_ms: " + string(rune('1'+i)) + "0\n")
		if err := os.WriteFile(path, content, 0o600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	ok := testutil.WaitForCondition(t, 2*time.Second, func() bool {
		cfg, n := rec.last()
		return n > 0 && cfg.PollIntervalMS == 50
	})
	if !ok {
		t.Fatal("final write never delivered")
	}
	if _, n := rec.last(); n != 1 {
		t.Fatalf("burst produced %d reloads, want 1", n)
	}
}

func TestNewWatcherValidation(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"), 0, nil); err == nil {
		t.Fatal("NewWatcher(nil callback) expected error")
	}
	missingDir := filepath.Join(t.TempDir(), "missing", "config.yaml")
	if _, err := NewWatcher(missingDir, 0, func(Config) {}); err == nil {
		t.Fatal("NewWatcher(missing dir) expected error")
	}
}
