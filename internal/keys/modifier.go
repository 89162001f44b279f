package keys

import "strings"

// Modifier is a bitmask of held modifier keys. Left and right physical keys
// fold into the same bit.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// modifierOrder fixes the order used when rendering a mask.
var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModShift, "Shift"},
	{ModAlt, "Alt"},
	{ModSuper, "Super"},
}

var modifierByName = map[string]Modifier{
	"CTRL":    ModCtrl,
	"CONTROL": ModCtrl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"OPTION":  ModAlt,
	"SUPER":   ModSuper,
	"WIN":     ModSuper,
	"META":    ModSuper,
	"CMD":     ModSuper,
}

var modifierByCode = map[Code]Modifier{
	KeyLeftCtrl:   ModCtrl,
	KeyRightCtrl:  ModCtrl,
	KeyLeftShift:  ModShift,
	KeyRightShift: ModShift,
	KeyLeftAlt:    ModAlt,
	KeyRightAlt:   ModAlt,
	KeyLeftMeta:   ModSuper,
	KeyRightMeta:  ModSuper,
}

// ParseModifier resolves a modifier token such as "Ctrl" or "Win".
func ParseModifier(name string) (Modifier, bool) {
	mod, ok := modifierByName[strings.ToUpper(strings.TrimSpace(name))]
	return mod, ok
}

// ModifierOf reports which modifier bit a physical key contributes, if any.
func ModifierOf(c Code) (Modifier, bool) {
	mod, ok := modifierByCode[c]
	return mod, ok
}

// Has reports whether every bit in other is set in m.
func (m Modifier) Has(other Modifier) bool { return m&other == other }

// Names returns the display names of the set bits in canonical order.
func (m Modifier) Names() []string {
	var names []string
	for _, entry := range modifierOrder {
		if m.Has(entry.mod) {
			names = append(names, entry.name)
		}
	}
	return names
}

func (m Modifier) String() string { return strings.Join(m.Names(), "+") }
