package hotkeys

import (
	"fmt"
	"strings"

	"hotkeysched/internal/keys"
)

// Binding describes a parsed key combination.
// Construct only via ParseBinding to guarantee invariant consistency.
type Binding struct {
	modifiers  keys.Modifier
	key        keys.Code
	normalized string
}

// Modifiers returns the modifier bitmask.
func (b Binding) Modifiers() keys.Modifier { return b.modifiers }

// Key returns the non-modifier key code.
func (b Binding) Key() keys.Code { return b.key }

// Normalized returns the canonical human-readable binding string.
func (b Binding) Normalized() string { return b.normalized }

// IsZero reports whether b is the unset binding.
func (b Binding) IsZero() bool { return b.key == 0 }

func (b Binding) String() string { return b.normalized }

// ActiveIn reports whether the combination is held in snap. The held
// modifier set must match exactly, so "F1" and "Shift+F1" never overlap.
func (b Binding) ActiveIn(snap keys.Snapshot) bool {
	if b.IsZero() {
		return false
	}
	return snap.Pressed(b.key) && snap.Modifiers() == b.modifiers
}

// ParseBinding parses a binding like "Ctrl+Shift+F12" or "F1".
// The last token is the key; every preceding token must be a modifier.
func ParseBinding(spec string) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("hotkey spec is empty")
	}

	parts := strings.Split(raw, "+")
	var modifiers keys.Modifier
	for _, token := range parts[:len(parts)-1] {
		if strings.TrimSpace(token) == "" {
			return Binding{}, fmt.Errorf("empty token in hotkey %q", raw)
		}
		mod, ok := keys.ParseModifier(token)
		if !ok {
			return Binding{}, fmt.Errorf("unknown modifier %q in hotkey %q", token, raw)
		}
		modifiers |= mod
	}

	keyToken := strings.TrimSpace(parts[len(parts)-1])
	if keyToken == "" {
		return Binding{}, fmt.Errorf("missing key in hotkey %q", raw)
	}
	if _, isMod := keys.ParseModifier(keyToken); isMod {
		return Binding{}, fmt.Errorf("hotkey %q must end with a non-modifier key", raw)
	}
	key, err := keys.ParseCode(keyToken)
	if err != nil {
		return Binding{}, fmt.Errorf("hotkey %q: %w", raw, err)
	}
	if _, isMod := keys.ModifierOf(key); isMod {
		return Binding{}, fmt.Errorf("hotkey %q must end with a non-modifier key", raw)
	}

	normalized := strings.Join(append(modifiers.Names(), key.Name()), "+")
	return Binding{
		modifiers:  modifiers,
		key:        key,
		normalized: normalized,
	}, nil
}

// MustParseBinding is ParseBinding for compile-time constant specs; it
// panics on error.
func MustParseBinding(spec string) Binding {
	b, err := ParseBinding(spec)
	if err != nil {
		panic(err)
	}
	return b
}

// ActionBinding pairs a logical action (and its parameter) with the key
// combination that triggers it. ActionBinding is comparable and doubles as
// the edge-table key.
type ActionBinding struct {
	Action  Action
	Param   int
	Binding Binding
}

// NewActionBinding validates the action/parameter pair and parses spec.
func NewActionBinding(action Action, param int, spec string) (ActionBinding, error) {
	if err := action.ValidateParam(param); err != nil {
		return ActionBinding{}, err
	}
	binding, err := ParseBinding(spec)
	if err != nil {
		return ActionBinding{}, err
	}
	return ActionBinding{Action: action, Param: param, Binding: binding}, nil
}

func (ab ActionBinding) String() string {
	if ab.Action.Parameterized() {
		return fmt.Sprintf("%s(%d)=%s", ab.Action, ab.Param, ab.Binding)
	}
	return fmt.Sprintf("%s=%s", ab.Action, ab.Binding)
}
