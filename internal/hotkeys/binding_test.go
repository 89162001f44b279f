package hotkeys

import (
	"strings"
	"testing"

	"hotkeysched/internal/keys"
)

func TestParseBindingSuccess(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantNorm string
		wantMods keys.Modifier
		wantKey  keys.Code
	}{
		{
			name:     "Ctrl+Shift+F12",
			spec:     "Ctrl+Shift+F12",
			wantNorm: "Ctrl+Shift+F12",
			wantMods: keys.ModCtrl | keys.ModShift,
			wantKey:  keys.KeyF12,
		},
		// Bare function key, the default load-slot binding.
		{
			name:     "F1",
			spec:     "F1",
			wantNorm: "F1",
			wantKey:  keys.KeyF1,
		},
		{
			name:     "modifier order normalized",
			spec:     "shift+ctrl+o",
			wantNorm: "Ctrl+Shift+O",
			wantMods: keys.ModCtrl | keys.ModShift,
			wantKey:  keys.KeyO,
		},
		{
			name:     "surrounding whitespace",
			spec:     "  Alt + F5 ",
			wantNorm: "Alt+F5",
			wantMods: keys.ModAlt,
			wantKey:  keys.KeyF5,
		},
		{
			name:     "evdev name",
			spec:     "Ctrl+KEY_K",
			wantNorm: "Ctrl+K",
			wantMods: keys.ModCtrl,
			wantKey:  keys.KeyK,
		},
		{
			name:     "duplicate modifier collapses",
			spec:     "Ctrl+Control+K",
			wantNorm: "Ctrl+K",
			wantMods: keys.ModCtrl,
			wantKey:  keys.KeyK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBinding(tt.spec)
			if err != nil {
				t.Fatalf("ParseBinding(%q) error = %v", tt.spec, err)
			}
			if b.Normalized() != tt.wantNorm {
				t.Errorf("Normalized() = %q, want %q", b.Normalized(), tt.wantNorm)
			}
			if b.Modifiers() != tt.wantMods {
				t.Errorf("Modifiers() = %v, want %v", b.Modifiers(), tt.wantMods)
			}
			if b.Key() != tt.wantKey {
				t.Errorf("Key() = %v, want %v", b.Key(), tt.wantKey)
			}
		})
	}
}

func TestParseBindingErrors(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr string
	}{
		{name: "empty", spec: "", wantErr: "empty"},
		{name: "whitespace only", spec: "   ", wantErr: "empty"},
		{name: "modifier only", spec: "Ctrl", wantErr: "non-modifier"},
		{name: "modifier as key", spec: "Ctrl+Shift", wantErr: "non-modifier"},
		{name: "physical modifier as key", spec: "Ctrl+LEFTSHIFT", wantErr: "non-modifier"},
		{name: "trailing plus", spec: "Ctrl+", wantErr: "missing key"},
		{name: "empty token", spec: "Ctrl++K", wantErr: "empty token"},
		{name: "unknown modifier", spec: "Hyper+K", wantErr: "unknown modifier"},
		{name: "unknown key", spec: "Ctrl+NOPE", wantErr: "NOPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBinding(tt.spec)
			if err == nil {
				t.Fatalf("ParseBinding(%q) expected error", tt.spec)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ParseBinding(%q) error = %q, want substring %q", tt.spec, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestBindingActiveIn(t *testing.T) {
	f1 := MustParseBinding("F1")
	shiftF1 := MustParseBinding("Shift+F1")

	tests := []struct {
		name    string
		binding Binding
		snap    keys.Snapshot
		want    bool
	}{
		{name: "key down", binding: f1, snap: keys.NewSnapshot(keys.KeyF1), want: true},
		{name: "key up", binding: f1, snap: keys.NewSnapshot(keys.KeyF2), want: false},
		{name: "extra modifier rejects", binding: f1, snap: keys.NewSnapshot(keys.KeyLeftShift, keys.KeyF1), want: false},
		{name: "exact modifier", binding: shiftF1, snap: keys.NewSnapshot(keys.KeyRightShift, keys.KeyF1), want: true},
		{name: "missing modifier", binding: shiftF1, snap: keys.NewSnapshot(keys.KeyF1), want: false},
		{name: "other keys held", binding: f1, snap: keys.NewSnapshot(keys.KeyA, keys.KeyF1), want: true},
		{name: "zero snapshot", binding: f1, snap: keys.Snapshot{}, want: false},
		{name: "zero binding", binding: Binding{}, snap: keys.NewSnapshot(keys.KeyF1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.binding.ActiveIn(tt.snap); got != tt.want {
				t.Fatalf("%s.ActiveIn(%v) = %v, want %v", tt.binding, tt.snap.Codes(), got, tt.want)
			}
		})
	}
}

func TestNewActionBinding(t *testing.T) {
	ab, err := NewActionBinding(ActionStateLoadSlot, 3, "F3")
	if err != nil {
		t.Fatalf("NewActionBinding() error = %v", err)
	}
	if got := ab.String(); got != "state-load-slot(3)=F3" {
		t.Fatalf("String() = %q", got)
	}

	if _, err := NewActionBinding(ActionStateLoadSlot, 0, "F3"); err == nil {
		t.Fatal("slot 0 should be rejected")
	}
	if _, err := NewActionBinding(ActionOpen, 1, "Ctrl+O"); err == nil {
		t.Fatal("parameter on a bare action should be rejected")
	}
	if _, err := NewActionBinding(ActionOpen, 0, "Ctrl"); err == nil {
		t.Fatal("invalid key spec should be rejected")
	}
}

func TestMustParseBindingPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustParseBinding did not panic on bad input")
		}
	}()
	MustParseBinding("Ctrl+")
}
