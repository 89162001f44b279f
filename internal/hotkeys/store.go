package hotkeys

import (
	"log/slog"
	"sync/atomic"

	"hotkeysched/internal/keys"
)

// BindingSet is an immutable, pre-split view of the configured bindings.
type BindingSet struct {
	// Primary is evaluated on every tick.
	Primary []ActionBinding
	// Debugging is evaluated only while a debugging session is attached.
	Debugging []ActionBinding

	generation uint64
}

// NewBindingSet splits bindings into primary and debugging sets, dropping
// zero bindings and exact duplicates. Order is preserved.
func NewBindingSet(bindings []ActionBinding) BindingSet {
	var set BindingSet
	seen := make(map[ActionBinding]struct{}, len(bindings))
	for _, ab := range bindings {
		if ab.Binding.IsZero() || !ab.Action.Valid() {
			slog.Debug("[DEBUG-HOTKEY] skipping unusable binding", "binding", ab.String())
			continue
		}
		if _, dup := seen[ab]; dup {
			slog.Debug("[DEBUG-HOTKEY] skipping duplicate binding", "binding", ab.String())
			continue
		}
		seen[ab] = struct{}{}
		if ab.Action.Debugging() {
			set.Debugging = append(set.Debugging, ab)
		} else {
			set.Primary = append(set.Primary, ab)
		}
	}
	return set
}

// Len returns the total number of bindings in the set.
func (s BindingSet) Len() int { return len(s.Primary) + len(s.Debugging) }

// Codes returns the distinct non-modifier keys referenced by the set, in
// first-use order. Polling input backends query only these.
func (s BindingSet) Codes() []keys.Code {
	seen := make(map[keys.Code]struct{}, s.Len())
	out := make([]keys.Code, 0, s.Len())
	for _, group := range [][]ActionBinding{s.Primary, s.Debugging} {
		for _, ab := range group {
			code := ab.Binding.Key()
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}

// BindingProvider supplies the bindings to evaluate. The poll loop calls
// Bindings once per tick, so implementations must be cheap and safe for
// concurrent use. Sets built by BindingStore are versioned and pruned only on
// change; any other set is pruned on every tick.
type BindingProvider interface {
	Bindings() BindingSet
}

// BindingStore is a BindingProvider whose contents can be swapped at any
// time, e.g. on config reload. Readers never block writers.
type BindingStore struct {
	current    atomic.Pointer[BindingSet]
	generation atomic.Uint64
}

// NewBindingStore creates a store holding bindings.
func NewBindingStore(bindings []ActionBinding) *BindingStore {
	s := &BindingStore{}
	s.Replace(bindings)
	return s
}

// Replace publishes a new binding list. The next tick observes it.
func (s *BindingStore) Replace(bindings []ActionBinding) {
	set := NewBindingSet(bindings)
	set.generation = s.generation.Add(1)
	s.current.Store(&set)
}

// Bindings returns the current set.
func (s *BindingStore) Bindings() BindingSet {
	if set := s.current.Load(); set != nil {
		return *set
	}
	return BindingSet{}
}
