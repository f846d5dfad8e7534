// Package tcellmedia evaluates media queries against a tcell screen.
//
// Width and height are measured in cells. The media type is "tty" and the
// colour depth comes from the number of colours the screen reports.
package tcellmedia

import (
	"context"
	"math/bits"
	"os"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/odvcencio/furry-media/media"
	"github.com/odvcencio/furry-media/query"
)

// MediaType is the media type terminal hosts report.
const MediaType = "tty"

// Host is a media.Media fed by tcell events.
type Host struct {
	*media.Environment
}

var _ media.Media = (*Host)(nil)

// New creates a host seeded from screen. The screen must be initialised.
func New(screen tcell.Screen) *Host {
	return &Host{Environment: media.NewEnvironment(Values(screen))}
}

// Values reads the current query values from screen.
func Values(screen tcell.Screen) query.Values {
	v := query.Values{Type: MediaType}
	if screen == nil {
		return v
	}
	v.Width, v.Height = screen.Size()
	v.DeviceWidth, v.DeviceHeight = v.Width, v.Height
	applyColors(&v, screen.Colors())
	return v
}

// HandleEvent applies ev to the host and reports whether it was a resize.
// Listeners of queries whose result flipped run before it returns.
func (h *Host) HandleEvent(ev tcell.Event) bool {
	resize, ok := ev.(*tcell.EventResize)
	if !ok {
		return false
	}
	h.Resize(resize.Size())
	return true
}

// Resize sets the viewport and device size in cells.
func (h *Host) Resize(width, height int) {
	h.Update(func(v *query.Values) {
		v.Width, v.Height = width, height
		v.DeviceWidth, v.DeviceHeight = width, height
	})
}

// Watch polls screen until ctx is done or the screen is finalised, applying
// resize events and passing every event to forward (which may be nil).
// Callers that own an event loop already should call HandleEvent from it
// instead.
func (h *Host) Watch(ctx context.Context, screen tcell.Screen, forward func(tcell.Event)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	for {
		ev := screen.PollEvent()
		if ev == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		h.HandleEvent(ev)
		if forward != nil {
			forward(ev)
		}
	}
}

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// NewFor creates a host for screen that reports itself unavailable when out
// is not a terminal.
func NewFor(screen tcell.Screen, out *os.File) *Host {
	h := New(screen)
	h.SetAvailable(Interactive(out))
	return h
}

// applyColors maps a palette size onto the color, color-index and
// monochrome features.
func applyColors(v *query.Values, colors int) {
	v.Color, v.ColorIndex, v.Monochrome = 0, 0, 0
	switch {
	case colors <= 0:
		return
	case colors <= 2:
		v.Monochrome = 1
		return
	}
	depth := bits.Len(uint(colors - 1))
	v.Color = depth / 3
	if v.Color == 0 {
		v.Color = 1
	}
	if colors <= 256 {
		v.ColorIndex = colors
	}
}
