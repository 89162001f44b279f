package input

import "hotkeysched/internal/keys"

// virtualKeys maps evdev codes to Windows virtual-key codes for
// GetAsyncKeyState. Left and right modifiers use their sided VK codes.
var virtualKeys = func() map[keys.Code]uint16 {
	m := map[keys.Code]uint16{
		keys.KeyEsc:        0x1B,
		keys.KeyBackspace:  0x08,
		keys.KeyTab:        0x09,
		keys.KeyEnter:      0x0D,
		keys.KeySpace:      0x20,
		keys.KeyCapsLock:   0x14,
		keys.KeyPause:      0x13,
		keys.KeyPageUp:     0x21,
		keys.KeyPageDown:   0x22,
		keys.KeyEnd:        0x23,
		keys.KeyHome:       0x24,
		keys.KeyLeft:       0x25,
		keys.KeyUp:         0x26,
		keys.KeyRight:      0x27,
		keys.KeyDown:       0x28,
		keys.KeySysRq:      0x2C,
		keys.KeyInsert:     0x2D,
		keys.KeyDelete:     0x2E,
		keys.KeyNumLock:    0x90,
		keys.KeyScrollLock: 0x91,
		keys.KeyMenu:       0x5D,

		keys.KeyLeftShift:  0xA0,
		keys.KeyRightShift: 0xA1,
		keys.KeyLeftCtrl:   0xA2,
		keys.KeyRightCtrl:  0xA3,
		keys.KeyLeftAlt:    0xA4,
		keys.KeyRightAlt:   0xA5,
		keys.KeyLeftMeta:   0x5B,
		keys.KeyRightMeta:  0x5C,

		keys.KeySemicolon:  0xBA,
		keys.KeyEqual:      0xBB,
		keys.KeyComma:      0xBC,
		keys.KeyMinus:      0xBD,
		keys.KeyDot:        0xBE,
		keys.KeySlash:      0xBF,
		keys.KeyGrave:      0xC0,
		keys.KeyLeftBrace:  0xDB,
		keys.KeyBackslash:  0xDC,
		keys.KeyRightBrace: 0xDD,
		keys.KeyApostrophe: 0xDE,

		keys.KeyKPAsterisk: 0x6A,
		keys.KeyKPPlus:     0x6B,
		keys.KeyKPMinus:    0x6D,
		keys.KeyKPDot:      0x6E,
		keys.KeyKPSlash:    0x6F,

		keys.KeyMute:       0xAD,
		keys.KeyVolumeDown: 0xAE,
		keys.KeyVolumeUp:   0xAF,

		keys.BtnLeft:   0x01,
		keys.BtnRight:  0x02,
		keys.BtnMiddle: 0x04,
		keys.BtnSide:   0x05,
		keys.BtnExtra:  0x06,
	}

	letters := []keys.Code{
		keys.KeyA, keys.KeyB, keys.KeyC, keys.KeyD, keys.KeyE, keys.KeyF,
		keys.KeyG, keys.KeyH, keys.KeyI, keys.KeyJ, keys.KeyK, keys.KeyL,
		keys.KeyM, keys.KeyN, keys.KeyO, keys.KeyP, keys.KeyQ, keys.KeyR,
		keys.KeyS, keys.KeyT, keys.KeyU, keys.KeyV, keys.KeyW, keys.KeyX,
		keys.KeyY, keys.KeyZ,
	}
	for i, c := range letters {
		m[c] = uint16('A' + i)
	}

	digits := []keys.Code{
		keys.Key0, keys.Key1, keys.Key2, keys.Key3, keys.Key4,
		keys.Key5, keys.Key6, keys.Key7, keys.Key8, keys.Key9,
	}
	keypad := []keys.Code{
		keys.KeyKP0, keys.KeyKP1, keys.KeyKP2, keys.KeyKP3, keys.KeyKP4,
		keys.KeyKP5, keys.KeyKP6, keys.KeyKP7, keys.KeyKP8, keys.KeyKP9,
	}
	for i := range digits {
		m[digits[i]] = uint16('0' + i)
		m[keypad[i]] = uint16(0x60 + i)
	}

	functions := []keys.Code{
		keys.KeyF1, keys.KeyF2, keys.KeyF3, keys.KeyF4, keys.KeyF5, keys.KeyF6,
		keys.KeyF7, keys.KeyF8, keys.KeyF9, keys.KeyF10, keys.KeyF11, keys.KeyF12,
		keys.KeyF13, keys.KeyF14, keys.KeyF15, keys.KeyF16, keys.KeyF17, keys.KeyF18,
		keys.KeyF19, keys.KeyF20, keys.KeyF21, keys.KeyF22, keys.KeyF23, keys.KeyF24,
	}
	for i, c := range functions {
		m[c] = uint16(0x70 + i)
	}
	return m
}()

// VirtualKey returns the Windows virtual-key code for c.
func VirtualKey(c keys.Code) (uint16, bool) {
	vk, ok := virtualKeys[c]
	return vk, ok
}
