package hotkeys

import "testing"

func TestActionNamesRoundTrip(t *testing.T) {
	seen := make(map[string]Action)
	for _, a := range Actions() {
		if !a.Valid() {
			t.Fatalf("Actions() returned invalid action %d", int(a))
		}
		name := a.String()
		if prev, dup := seen[name]; dup {
			t.Fatalf("actions %d and %d share name %q", int(prev), int(a), name)
		}
		seen[name] = a

		parsed, err := ParseAction(name)
		if err != nil {
			t.Fatalf("ParseAction(%q) error = %v", name, err)
		}
		if parsed != a {
			t.Fatalf("ParseAction(%q) = %v, want %v", name, parsed, a)
		}
	}
	if len(seen) != len(actionInfos) {
		t.Fatalf("Actions() covers %d actions, table has %d", len(seen), len(actionInfos))
	}
}

func TestParseActionNormalizesCase(t *testing.T) {
	a, err := ParseAction("  Toggle-Pause ")
	if err != nil || a != ActionTogglePause {
		t.Fatalf("ParseAction() = %v, %v", a, err)
	}
	if _, err := ParseAction("fly"); err == nil {
		t.Fatal("ParseAction(fly) expected error")
	}
}

func TestActionClassification(t *testing.T) {
	tests := []struct {
		action        Action
		debugging     bool
		parameterized bool
	}{
		{action: ActionOpen},
		{action: ActionTogglePause},
		{action: ActionSetStateSlot, parameterized: true},
		{action: ActionStateLoadSlot, parameterized: true},
		{action: ActionStateSaveSlot, parameterized: true},
		{action: ActionStateLoadLastSaved, parameterized: true},
		{action: ActionConnectWiiRemote, parameterized: true},
		{action: ActionStep, debugging: true},
		{action: ActionStepOver, debugging: true},
		{action: ActionToggleBreakpoint, debugging: true},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := tt.action.Debugging(); got != tt.debugging {
				t.Errorf("Debugging() = %v, want %v", got, tt.debugging)
			}
			if got := tt.action.Parameterized(); got != tt.parameterized {
				t.Errorf("Parameterized() = %v, want %v", got, tt.parameterized)
			}
		})
	}
}

func TestValidateParam(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		param   int
		wantErr bool
	}{
		{name: "slot lower bound", action: ActionStateLoadSlot, param: 1},
		{name: "slot upper bound", action: ActionStateSaveSlot, param: NumStateSlots},
		{name: "slot zero", action: ActionStateLoadSlot, param: 0, wantErr: true},
		{name: "slot too high", action: ActionSetStateSlot, param: NumStateSlots + 1, wantErr: true},
		{name: "remote zero", action: ActionConnectWiiRemote, param: 0},
		{name: "remote max", action: ActionConnectWiiRemote, param: NumWiiRemotes - 1},
		{name: "remote too high", action: ActionConnectWiiRemote, param: NumWiiRemotes, wantErr: true},
		{name: "remote negative", action: ActionConnectWiiRemote, param: -1, wantErr: true},
		{name: "bare action zero", action: ActionExit, param: 0},
		{name: "bare action with param", action: ActionExit, param: 2, wantErr: true},
		{name: "unknown action", action: Action(999), param: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.ValidateParam(tt.param)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateParam(%d) error = %v, wantErr %v", tt.param, err, tt.wantErr)
			}
		})
	}
}

func TestUnknownActionString(t *testing.T) {
	if got := Action(999).String(); got != "action(999)" {
		t.Fatalf("String() = %q", got)
	}
}
