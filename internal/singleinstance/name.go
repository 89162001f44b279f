// Package singleinstance keeps a second daemon from sampling the same
// keyboard and emitting every notification twice.
package singleinstance

import (
	"errors"
	"os"
	"os/user"
	"regexp"
	"strings"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another hotkeysched instance is already running")

var invalidNameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeUsername normalizes a user name for use in lock names.
func sanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidNameRune.ReplaceAllString(value, "_")
}

// currentUsername reads $USER or %USERNAME% before falling back to the
// account database.
func currentUsername() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return ""
}
