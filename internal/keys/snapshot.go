package keys

import "sort"

// Snapshot is an immutable view of which codes were down at sample time.
// The zero value means nothing is pressed.
type Snapshot struct {
	pressed map[Code]struct{}
	mods    Modifier
}

// NewSnapshot builds a snapshot from the given pressed codes.
func NewSnapshot(pressed ...Code) Snapshot {
	if len(pressed) == 0 {
		return Snapshot{}
	}
	snap := Snapshot{pressed: make(map[Code]struct{}, len(pressed))}
	for _, code := range pressed {
		snap.pressed[code] = struct{}{}
		if mod, ok := ModifierOf(code); ok {
			snap.mods |= mod
		}
	}
	return snap
}

// Pressed reports whether c was down.
func (s Snapshot) Pressed(c Code) bool {
	_, ok := s.pressed[c]
	return ok
}

// Modifiers returns the folded modifier mask of the held keys.
func (s Snapshot) Modifiers() Modifier { return s.mods }

// Len returns the number of pressed codes.
func (s Snapshot) Len() int { return len(s.pressed) }

// Codes returns the pressed codes in ascending order.
func (s Snapshot) Codes() []Code {
	out := make([]Code, 0, len(s.pressed))
	for code := range s.pressed {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
