package keys

import (
	"slices"
	"testing"
)

func TestParseCode(t *testing.T) {
	tests := []struct {
		raw  string
		want Code
	}{
		{raw: "F1", want: KeyF1},
		{raw: "key_f12", want: KeyF12},
		{raw: "  a ", want: KeyA},
		{raw: "7", want: Key7},
		{raw: "Escape", want: KeyEsc},
		{raw: "ESC", want: KeyEsc},
		{raw: "`", want: KeyGrave},
		{raw: "BTN_SIDE", want: BtnSide},
		{raw: "btn_back", want: BtnSide},
		{raw: "mouse5", want: BtnExtra},
		{raw: "0x3b", want: KeyF1},
		{raw: "KEY_LEFTCTRL", want: KeyLeftCtrl},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseCode(tc.raw)
			if err != nil {
				t.Fatalf("ParseCode(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseCode(%q) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseCodeErrors(t *testing.T) {
	for _, raw := range []string{"", "   ", "NOPE", "0x", "0x0", "0xZZ", "0x10000"} {
		if _, err := ParseCode(raw); err == nil {
			t.Fatalf("ParseCode(%q) expected error", raw)
		}
	}
}

func TestCodeName(t *testing.T) {
	if got := KeyF8.Name(); got != "F8" {
		t.Fatalf("KeyF8.Name() = %q, want F8", got)
	}
	if got := BtnExtra.Name(); got != "BTN_EXTRA" {
		t.Fatalf("BtnExtra.Name() = %q, want BTN_EXTRA", got)
	}
	if got := Code(0x2FF).Name(); got != "0x2FF" {
		t.Fatalf("unnamed code Name() = %q, want 0x2FF", got)
	}
}

func TestKnownCodesRoundTrip(t *testing.T) {
	for _, code := range KnownCodes() {
		parsed, err := ParseCode(code.Name())
		if err != nil {
			t.Fatalf("ParseCode(%q) error = %v", code.Name(), err)
		}
		if parsed != code {
			t.Fatalf("ParseCode(%q) = %d, want %d", code.Name(), parsed, code)
		}
	}
}

func TestParseModifier(t *testing.T) {
	tests := []struct {
		raw  string
		want Modifier
	}{
		{raw: "ctrl", want: ModCtrl},
		{raw: "Control", want: ModCtrl},
		{raw: "SHIFT", want: ModShift},
		{raw: "Alt", want: ModAlt},
		{raw: "win", want: ModSuper},
		{raw: "Cmd", want: ModSuper},
	}
	for _, tc := range tests {
		got, ok := ParseModifier(tc.raw)
		if !ok || got != tc.want {
			t.Fatalf("ParseModifier(%q) = %v,%v want %v,true", tc.raw, got, ok, tc.want)
		}
	}
	if _, ok := ParseModifier("hyper"); ok {
		t.Fatal("ParseModifier(hyper) should fail")
	}
}

func TestModifierString(t *testing.T) {
	if got := (ModAlt | ModCtrl).String(); got != "Ctrl+Alt" {
		t.Fatalf("String() = %q, want Ctrl+Alt", got)
	}
	if got := Modifier(0).String(); got != "" {
		t.Fatalf("empty String() = %q, want empty", got)
	}
}

func TestSnapshotFoldsModifiers(t *testing.T) {
	snap := NewSnapshot(KeyRightCtrl, KeyLeftShift, KeyF1)
	if got := snap.Modifiers(); got != ModCtrl|ModShift {
		t.Fatalf("Modifiers() = %v, want Ctrl+Shift", got)
	}
	if !snap.Pressed(KeyF1) || snap.Pressed(KeyF2) {
		t.Fatal("Pressed() mismatch")
	}
	if got, want := snap.Codes(), []Code{KeyLeftShift, KeyF1, KeyRightCtrl}; !slices.Equal(got, want) {
		t.Fatalf("Codes() = %v, want %v", got, want)
	}
}

func TestZeroSnapshot(t *testing.T) {
	var snap Snapshot
	if snap.Pressed(KeyA) || snap.Len() != 0 || snap.Modifiers() != 0 {
		t.Fatal("zero Snapshot should report nothing pressed")
	}
}
