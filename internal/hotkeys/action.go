package hotkeys

import (
	"fmt"
	"strings"
)

// Action is a logical application command, decoupled from the physical keys
// that trigger it.
type Action int

const (
	ActionOpen Action = iota + 1
	ActionEjectDisc
	ActionChangeDisc
	ActionExit
	ActionFullScreen
	ActionStop
	ActionReset
	ActionTogglePause
	ActionScreenShot
	ActionRefreshGameList
	ActionSetStateSlot
	ActionStateLoadSlotSelected
	ActionStateSaveSlotSelected
	ActionStateLoadSlot
	ActionStateSaveSlot
	ActionStateLoadLastSaved
	ActionStateSaveOldest
	ActionStateLoadUndo
	ActionStateSaveUndo
	ActionStartRecording
	ActionExportRecording
	ActionToggleReadOnlyMode
	ActionConnectWiiRemote

	ActionStep
	ActionStepOver
	ActionStepOut
	ActionSkip
	ActionShowPC
	ActionSetPC
	ActionToggleBreakpoint
	ActionAddBreakpoint
)

const (
	// NumStateSlots is the number of numbered save-state slots (1-based).
	NumStateSlots = 10
	// NumWiiRemotes is the number of connectable Wii Remotes (0-based ids).
	NumWiiRemotes = 4
)

type paramKind int

const (
	paramNone paramKind = iota
	paramStateSlot
	paramWiiRemote
)

type actionInfo struct {
	name      string
	param     paramKind
	debugging bool
}

var actionInfos = map[Action]actionInfo{
	ActionOpen:                  {name: "open"},
	ActionEjectDisc:             {name: "eject-disc"},
	ActionChangeDisc:            {name: "change-disc"},
	ActionExit:                  {name: "exit"},
	ActionFullScreen:            {name: "fullscreen"},
	ActionStop:                  {name: "stop"},
	ActionReset:                 {name: "reset"},
	ActionTogglePause:           {name: "toggle-pause"},
	ActionScreenShot:            {name: "screenshot"},
	ActionRefreshGameList:       {name: "refresh-game-list"},
	ActionSetStateSlot:          {name: "set-state-slot", param: paramStateSlot},
	ActionStateLoadSlotSelected: {name: "state-load-slot-selected"},
	ActionStateSaveSlotSelected: {name: "state-save-slot-selected"},
	ActionStateLoadSlot:         {name: "state-load-slot", param: paramStateSlot},
	ActionStateSaveSlot:         {name: "state-save-slot", param: paramStateSlot},
	ActionStateLoadLastSaved:    {name: "state-load-last-saved", param: paramStateSlot},
	ActionStateSaveOldest:       {name: "state-save-oldest"},
	ActionStateLoadUndo:         {name: "state-load-undo"},
	ActionStateSaveUndo:         {name: "state-save-undo"},
	ActionStartRecording:        {name: "start-recording"},
	ActionExportRecording:       {name: "export-recording"},
	ActionToggleReadOnlyMode:    {name: "toggle-read-only"},
	ActionConnectWiiRemote:      {name: "connect-wii-remote", param: paramWiiRemote},

	ActionStep:             {name: "step", debugging: true},
	ActionStepOver:         {name: "step-over", debugging: true},
	ActionStepOut:          {name: "step-out", debugging: true},
	ActionSkip:             {name: "skip", debugging: true},
	ActionShowPC:           {name: "show-pc", debugging: true},
	ActionSetPC:            {name: "set-pc", debugging: true},
	ActionToggleBreakpoint: {name: "toggle-breakpoint", debugging: true},
	ActionAddBreakpoint:    {name: "add-breakpoint", debugging: true},
}

var actionByName = func() map[string]Action {
	out := make(map[string]Action, len(actionInfos))
	for action, info := range actionInfos {
		out[info.name] = action
	}
	return out
}()

// Actions returns every defined action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionInfos))
	for a := ActionOpen; a <= ActionAddBreakpoint; a++ {
		out = append(out, a)
	}
	return out
}

// ParseAction resolves a kebab-case action name ("state-load-slot").
func ParseAction(name string) (Action, error) {
	action, ok := actionByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown hotkey action %q", name)
	}
	return action, nil
}

func (a Action) String() string {
	if info, ok := actionInfos[a]; ok {
		return info.name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is a defined action.
func (a Action) Valid() bool {
	_, ok := actionInfos[a]
	return ok
}

// Debugging reports whether a belongs to the debugger-only set that is
// evaluated only while a debugging session is attached.
func (a Action) Debugging() bool { return actionInfos[a].debugging }

// Parameterized reports whether notifications for a carry an integer.
func (a Action) Parameterized() bool { return actionInfos[a].param != paramNone }

// ValidateParam checks p against the action's parameter range. Actions
// without a parameter accept only 0.
func (a Action) ValidateParam(p int) error {
	info, ok := actionInfos[a]
	if !ok {
		return fmt.Errorf("unknown hotkey action %d", int(a))
	}
	switch info.param {
	case paramStateSlot:
		if p < 1 || p > NumStateSlots {
			return fmt.Errorf("%s: slot %d out of range 1-%d", info.name, p, NumStateSlots)
		}
	case paramWiiRemote:
		if p < 0 || p >= NumWiiRemotes {
			return fmt.Errorf("%s: remote id %d out of range 0-%d", info.name, p, NumWiiRemotes-1)
		}
	default:
		if p != 0 {
			return fmt.Errorf("%s does not take a parameter", info.name)
		}
	}
	return nil
}
