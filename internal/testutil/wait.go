package testutil

import (
	"testing"
	"time"
)

// WaitForCondition polls fn every 10ms and reports whether it returned true
// before timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, fn func() bool) bool {
	t.Helper()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if fn() {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return fn()
		}
	}
}
