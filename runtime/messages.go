package runtime

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// Message represents an event flowing into the app loop.
// Messages come from terminal input, timers, or background goroutines.
type Message interface {
	isMessage()
}

// KeyMsg represents a keyboard input event.
type KeyMsg struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

func (KeyMsg) isMessage() {}

// ResizeMsg indicates the terminal size changed.
type ResizeMsg struct {
	Width  int
	Height int
}

func (ResizeMsg) isMessage() {}

// TickMsg is sent on each frame tick.
type TickMsg struct {
	Time time.Time
}

func (TickMsg) isMessage() {}

// QueueFlushMsg triggers a state queue flush in the update loop.
type QueueFlushMsg struct{}

func (QueueFlushMsg) isMessage() {}

// InvalidateMsg requests a render pass.
type InvalidateMsg struct{}

func (InvalidateMsg) isMessage() {}

// translate converts a tcell event into a message. It returns nil for events
// the app does not handle.
func translate(ev tcell.Event) Message {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return KeyMsg{Key: e.Key(), Rune: e.Rune(), Mod: e.Modifiers()}
	case *tcell.EventResize:
		w, h := e.Size()
		return ResizeMsg{Width: w, Height: h}
	default:
		return nil
	}
}
