package hotkeys

import (
	"time"

	"github.com/google/uuid"
)

// Notification is emitted once per rising edge of an ActionBinding.
type Notification struct {
	ID       uuid.UUID
	Action   Action
	Param    int
	HasParam bool
	Time     time.Time
}

func newNotification(ab ActionBinding, at time.Time) Notification {
	return Notification{
		ID:       uuid.New(),
		Action:   ab.Action,
		Param:    ab.Param,
		HasParam: ab.Action.Parameterized(),
		Time:     at,
	}
}

// Emitter receives notifications from the poll goroutine. Emit must not
// block; delivery to subscribers happens elsewhere.
type Emitter interface {
	Emit(n Notification)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(n Notification)

// Emit calls f(n).
func (f EmitterFunc) Emit(n Notification) { f(n) }
