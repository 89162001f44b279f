package wsserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hotkeysched/internal/hotkeys"
)

// Frame and control message types carried in the "type" field.
const (
	typeHotkey      = "hotkey"
	typeLog         = "log"
	typeError       = "error"
	typeSubscribe   = "subscribe"
	typeUnsubscribe = "unsubscribe"
	typeDebugger    = "debugger"
)

// subscribeAll matches every action in a subscribe or unsubscribe list.
const subscribeAll = "*"

// hotkeyFrame is sent for every notification the client subscribed to.
// Param is present only for parameterized actions.
type hotkeyFrame struct {
	Type   string    `json:"type"`
	ID     string    `json:"id"`
	Action string    `json:"action"`
	Param  *int      `json:"param,omitempty"`
	Time   time.Time `json:"time"`
}

// logFrame mirrors a log record to the client.
type logFrame struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Source  string    `json:"source,omitempty"`
}

// errorMsg is the JSON payload for server error notifications sent to the client.
type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// controlMsg is an inbound client request. Actions is used by subscribe and
// unsubscribe; Attached by debugger.
type controlMsg struct {
	Type     string   `json:"type"`
	Actions  []string `json:"actions,omitempty"`
	Attached *bool    `json:"attached,omitempty"`
}

// actionFilter is the resolved form of a subscribe/unsubscribe action list.
type actionFilter struct {
	all     bool
	actions []hotkeys.Action
}

func encodeHotkey(n hotkeys.Notification) ([]byte, error) {
	if !n.Action.Valid() {
		return nil, fmt.Errorf("encode hotkey: invalid action %d", int(n.Action))
	}
	frame := hotkeyFrame{
		Type:   typeHotkey,
		ID:     n.ID.String(),
		Action: n.Action.String(),
		Time:   n.Time.UTC(),
	}
	if n.HasParam {
		param := n.Param
		frame.Param = &param
	}
	return json.Marshal(frame)
}

func encodeLog(ts time.Time, level slog.Level, msg, source string) ([]byte, error) {
	return json.Marshal(logFrame{
		Type:    typeLog,
		Time:    ts.UTC(),
		Level:   level.String(),
		Message: msg,
		Source:  source,
	})
}

func encodeError(message string) ([]byte, error) {
	return json.Marshal(errorMsg{Type: typeError, Message: message})
}

// decodeControl parses and validates a client request.
func decodeControl(data []byte) (controlMsg, error) {
	var msg controlMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return controlMsg{}, fmt.Errorf("invalid JSON: %w", err)
	}
	switch msg.Type {
	case typeSubscribe, typeUnsubscribe:
		if len(msg.Actions) == 0 {
			return controlMsg{}, fmt.Errorf("%s: actions list is empty", msg.Type)
		}
	case typeDebugger:
		if msg.Attached == nil {
			return controlMsg{}, errors.New("debugger: attached flag is required")
		}
	case "":
		return controlMsg{}, errors.New("missing message type")
	default:
		return controlMsg{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return msg, nil
}

// resolveActions maps action names to actions. Unknown names reject the
// whole list so a typo never leaves a partial subscription behind.
func resolveActions(names []string) (actionFilter, error) {
	var filter actionFilter
	var unknown []string
	for _, name := range names {
		if strings.TrimSpace(name) == subscribeAll {
			filter.all = true
			continue
		}
		action, err := hotkeys.ParseAction(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		filter.actions = append(filter.actions, action)
	}
	if len(unknown) > 0 {
		return actionFilter{}, fmt.Errorf("unknown actions: %s", strings.Join(unknown, ", "))
	}
	return filter, nil
}
