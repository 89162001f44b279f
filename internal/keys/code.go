// Package keys defines the platform-neutral key code space used by hotkey
// bindings and input sources.
//
// Codes follow the Linux evdev numbering (KEY_*, BTN_*) on every platform.
// Backends that read other native codes (e.g. Win32 virtual keys) translate
// into this space before handing state to the scheduler.
package keys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Code is a key or button code in evdev numbering.
type Code uint16

const (
	KeyEsc        Code = 1
	Key1          Code = 2
	Key2          Code = 3
	Key3          Code = 4
	Key4          Code = 5
	Key5          Code = 6
	Key6          Code = 7
	Key7          Code = 8
	Key8          Code = 9
	Key9          Code = 10
	Key0          Code = 11
	KeyMinus      Code = 12
	KeyEqual      Code = 13
	KeyBackspace  Code = 14
	KeyTab        Code = 15
	KeyQ          Code = 16
	KeyW          Code = 17
	KeyE          Code = 18
	KeyR          Code = 19
	KeyT          Code = 20
	KeyY          Code = 21
	KeyU          Code = 22
	KeyI          Code = 23
	KeyO          Code = 24
	KeyP          Code = 25
	KeyLeftBrace  Code = 26
	KeyRightBrace Code = 27
	KeyEnter      Code = 28
	KeyLeftCtrl   Code = 29
	KeyA          Code = 30
	KeyS          Code = 31
	KeyD          Code = 32
	KeyF          Code = 33
	KeyG          Code = 34
	KeyH          Code = 35
	KeyJ          Code = 36
	KeyK          Code = 37
	KeyL          Code = 38
	KeySemicolon  Code = 39
	KeyApostrophe Code = 40
	KeyGrave      Code = 41
	KeyLeftShift  Code = 42
	KeyBackslash  Code = 43
	KeyZ          Code = 44
	KeyX          Code = 45
	KeyC          Code = 46
	KeyV          Code = 47
	KeyB          Code = 48
	KeyN          Code = 49
	KeyM          Code = 50
	KeyComma      Code = 51
	KeyDot        Code = 52
	KeySlash      Code = 53
	KeyRightShift Code = 54
	KeyKPAsterisk Code = 55
	KeyLeftAlt    Code = 56
	KeySpace      Code = 57
	KeyCapsLock   Code = 58
	KeyF1         Code = 59
	KeyF2         Code = 60
	KeyF3         Code = 61
	KeyF4         Code = 62
	KeyF5         Code = 63
	KeyF6         Code = 64
	KeyF7         Code = 65
	KeyF8         Code = 66
	KeyF9         Code = 67
	KeyF10        Code = 68
	KeyNumLock    Code = 69
	KeyScrollLock Code = 70
	KeyKP7        Code = 71
	KeyKP8        Code = 72
	KeyKP9        Code = 73
	KeyKPMinus    Code = 74
	KeyKP4        Code = 75
	KeyKP5        Code = 76
	KeyKP6        Code = 77
	KeyKPPlus     Code = 78
	KeyKP1        Code = 79
	KeyKP2        Code = 80
	KeyKP3        Code = 81
	KeyKP0        Code = 82
	KeyKPDot      Code = 83
	KeyF11        Code = 87
	KeyF12        Code = 88
	KeyKPEnter    Code = 96
	KeyRightCtrl  Code = 97
	KeyKPSlash    Code = 98
	KeySysRq      Code = 99
	KeyRightAlt   Code = 100
	KeyHome       Code = 102
	KeyUp         Code = 103
	KeyPageUp     Code = 104
	KeyLeft       Code = 105
	KeyRight      Code = 106
	KeyEnd        Code = 107
	KeyDown       Code = 108
	KeyPageDown   Code = 109
	KeyInsert     Code = 110
	KeyDelete     Code = 111
	KeyMute       Code = 113
	KeyVolumeDown Code = 114
	KeyVolumeUp   Code = 115
	KeyPause      Code = 119
	KeyLeftMeta   Code = 125
	KeyRightMeta  Code = 126
	KeyMenu       Code = 139
	KeyF13        Code = 183
	KeyF14        Code = 184
	KeyF15        Code = 185
	KeyF16        Code = 186
	KeyF17        Code = 187
	KeyF18        Code = 188
	KeyF19        Code = 189
	KeyF20        Code = 190
	KeyF21        Code = 191
	KeyF22        Code = 192
	KeyF23        Code = 193
	KeyF24        Code = 194

	BtnLeft   Code = 0x110
	BtnRight  Code = 0x111
	BtnMiddle Code = 0x112
	BtnSide   Code = 0x113
	BtnExtra  Code = 0x114
)

// namedCodes lists the canonical display name of every known code.
// Canonical names drop the evdev KEY_ prefix; buttons keep BTN_.
var namedCodes = []struct {
	code Code
	name string
}{
	{KeyEsc, "ESC"},
	{Key1, "1"}, {Key2, "2"}, {Key3, "3"}, {Key4, "4"}, {Key5, "5"},
	{Key6, "6"}, {Key7, "7"}, {Key8, "8"}, {Key9, "9"}, {Key0, "0"},
	{KeyMinus, "MINUS"},
	{KeyEqual, "EQUAL"},
	{KeyBackspace, "BACKSPACE"},
	{KeyTab, "TAB"},
	{KeyQ, "Q"}, {KeyW, "W"}, {KeyE, "E"}, {KeyR, "R"}, {KeyT, "T"},
	{KeyY, "Y"}, {KeyU, "U"}, {KeyI, "I"}, {KeyO, "O"}, {KeyP, "P"},
	{KeyLeftBrace, "LEFTBRACE"},
	{KeyRightBrace, "RIGHTBRACE"},
	{KeyEnter, "ENTER"},
	{KeyLeftCtrl, "LEFTCTRL"},
	{KeyA, "A"}, {KeyS, "S"}, {KeyD, "D"}, {KeyF, "F"}, {KeyG, "G"},
	{KeyH, "H"}, {KeyJ, "J"}, {KeyK, "K"}, {KeyL, "L"},
	{KeySemicolon, "SEMICOLON"},
	{KeyApostrophe, "APOSTROPHE"},
	{KeyGrave, "GRAVE"},
	{KeyLeftShift, "LEFTSHIFT"},
	{KeyBackslash, "BACKSLASH"},
	{KeyZ, "Z"}, {KeyX, "X"}, {KeyC, "C"}, {KeyV, "V"}, {KeyB, "B"},
	{KeyN, "N"}, {KeyM, "M"},
	{KeyComma, "COMMA"},
	{KeyDot, "DOT"},
	{KeySlash, "SLASH"},
	{KeyRightShift, "RIGHTSHIFT"},
	{KeyKPAsterisk, "KPASTERISK"},
	{KeyLeftAlt, "LEFTALT"},
	{KeySpace, "SPACE"},
	{KeyCapsLock, "CAPSLOCK"},
	{KeyF1, "F1"}, {KeyF2, "F2"}, {KeyF3, "F3"}, {KeyF4, "F4"},
	{KeyF5, "F5"}, {KeyF6, "F6"}, {KeyF7, "F7"}, {KeyF8, "F8"},
	{KeyF9, "F9"}, {KeyF10, "F10"}, {KeyF11, "F11"}, {KeyF12, "F12"},
	{KeyNumLock, "NUMLOCK"},
	{KeyScrollLock, "SCROLLLOCK"},
	{KeyKP0, "KP0"}, {KeyKP1, "KP1"}, {KeyKP2, "KP2"}, {KeyKP3, "KP3"},
	{KeyKP4, "KP4"}, {KeyKP5, "KP5"}, {KeyKP6, "KP6"}, {KeyKP7, "KP7"},
	{KeyKP8, "KP8"}, {KeyKP9, "KP9"},
	{KeyKPMinus, "KPMINUS"},
	{KeyKPPlus, "KPPLUS"},
	{KeyKPDot, "KPDOT"},
	{KeyKPEnter, "KPENTER"},
	{KeyKPSlash, "KPSLASH"},
	{KeyRightCtrl, "RIGHTCTRL"},
	{KeySysRq, "SYSRQ"},
	{KeyRightAlt, "RIGHTALT"},
	{KeyHome, "HOME"},
	{KeyUp, "UP"},
	{KeyPageUp, "PAGEUP"},
	{KeyLeft, "LEFT"},
	{KeyRight, "RIGHT"},
	{KeyEnd, "END"},
	{KeyDown, "DOWN"},
	{KeyPageDown, "PAGEDOWN"},
	{KeyInsert, "INSERT"},
	{KeyDelete, "DELETE"},
	{KeyMute, "MUTE"},
	{KeyVolumeDown, "VOLUMEDOWN"},
	{KeyVolumeUp, "VOLUMEUP"},
	{KeyPause, "PAUSE"},
	{KeyLeftMeta, "LEFTMETA"},
	{KeyRightMeta, "RIGHTMETA"},
	{KeyMenu, "MENU"},
	{KeyF13, "F13"}, {KeyF14, "F14"}, {KeyF15, "F15"}, {KeyF16, "F16"},
	{KeyF17, "F17"}, {KeyF18, "F18"}, {KeyF19, "F19"}, {KeyF20, "F20"},
	{KeyF21, "F21"}, {KeyF22, "F22"}, {KeyF23, "F23"}, {KeyF24, "F24"},
	{BtnLeft, "BTN_LEFT"},
	{BtnRight, "BTN_RIGHT"},
	{BtnMiddle, "BTN_MIDDLE"},
	{BtnSide, "BTN_SIDE"},
	{BtnExtra, "BTN_EXTRA"},
}

var codeAliases = map[string]Code{
	"ESCAPE":      KeyEsc,
	"RETURN":      KeyEnter,
	"DEL":         KeyDelete,
	"INS":         KeyInsert,
	"PGUP":        KeyPageUp,
	"PGDN":        KeyPageDown,
	"`":           KeyGrave,
	"BACKQUOTE":   KeyGrave,
	"PRINT":       KeySysRq,
	"PRINTSCREEN": KeySysRq,
	"-":           KeyMinus,
	"=":           KeyEqual,
	",":           KeyComma,
	".":           KeyDot,
	"/":           KeySlash,
	";":           KeySemicolon,
	"BTN_BACK":    BtnSide,
	"BTN_FORWARD": BtnExtra,
	"MOUSE4":      BtnSide,
	"MOUSE5":      BtnExtra,
}

var (
	codeByName = make(map[string]Code, len(namedCodes)+len(codeAliases))
	nameByCode = make(map[Code]string, len(namedCodes))
)

func init() {
	for _, entry := range namedCodes {
		codeByName[entry.name] = entry.code
		nameByCode[entry.code] = entry.name
	}
	for alias, code := range codeAliases {
		codeByName[alias] = code
	}
}

// ParseCode resolves a key name to its code. Accepted forms are canonical
// names ("F1", "A", "ENTER"), evdev names ("KEY_F1", "BTN_SIDE"), a few
// aliases ("ESCAPE", "MOUSE4") and hex literals ("0x3b").
func ParseCode(value string) (Code, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("key name is empty")
	}
	if code, ok := codeByName[raw]; ok {
		return code, nil
	}
	if trimmed, ok := strings.CutPrefix(raw, "KEY_"); ok {
		if code, ok := codeByName[trimmed]; ok {
			return code, nil
		}
	}
	if strings.HasPrefix(raw, "0X") {
		parsed, err := strconv.ParseUint(raw[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid hex key code %q", value)
		}
		if parsed == 0 {
			return 0, fmt.Errorf("key code 0x0 is reserved")
		}
		return Code(parsed), nil
	}
	return 0, fmt.Errorf("unknown key %q", value)
}

// Name returns the canonical name of c, or its hex form when c has no name.
func (c Code) Name() string {
	if name, ok := nameByCode[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%X", uint16(c))
}

func (c Code) String() string { return c.Name() }

// KnownCodes returns every named code in ascending order.
func KnownCodes() []Code {
	out := make([]Code, 0, len(nameByCode))
	for code := range nameByCode {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
