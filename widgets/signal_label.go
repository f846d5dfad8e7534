package widgets

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/odvcencio/furry-media/runtime"
	"github.com/odvcencio/furry-media/state"
)

// SignalLabel is a one-line label bound to a readable value, such as a
// responsive.Select of the current layout name.
type SignalLabel struct {
	source    state.Readable[string]
	scheduler state.Scheduler
	subs      state.Subscriptions
	style     tcell.Style
	alignment Alignment
	services  runtime.Services

	flash      time.Duration
	flashStyle tcell.Style
	now        func() time.Time

	mu        sync.Mutex
	text      string
	mounted   bool
	changedAt time.Time
}

// NewSignalLabel creates a new signal-backed label. A nil scheduler updates
// the text on the notifying goroutine; Bind replaces it with the app's.
func NewSignalLabel(source state.Readable[string], scheduler state.Scheduler) *SignalLabel {
	label := &SignalLabel{
		source:    source,
		scheduler: scheduler,
		style:     tcell.StyleDefault,
		alignment: AlignLeft,
		now:       time.Now,
	}
	label.subs.SetScheduler(scheduler)
	if source != nil {
		label.text = source.Get()
	}
	return label
}

// Text returns the current label text.
func (s *SignalLabel) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetStyle sets the label style.
func (s *SignalLabel) SetStyle(style tcell.Style) {
	s.style = style
}

// SetAlignment sets text alignment.
func (s *SignalLabel) SetAlignment(align Alignment) {
	s.alignment = align
}

// SetFlash draws the label with style for d after each change. Set it
// before mounting.
func (s *SignalLabel) SetFlash(d time.Duration, style tcell.Style) {
	s.flash = d
	s.flashStyle = style
}

// Bind routes updates through the app scheduler unless one was given.
func (s *SignalLabel) Bind(services runtime.Services) {
	s.services = services
	if s.scheduler == nil {
		s.subs.SetScheduler(services.Scheduler())
	}
}

// Render draws the label on the first row of bounds.
func (s *SignalLabel) Render(screen tcell.Screen, bounds runtime.Rect) {
	if bounds.Width == 0 || bounds.Height == 0 {
		return
	}
	style := s.style
	if s.flashing() {
		style = s.flashStyle
	}
	drawAligned(screen, bounds, bounds.Y, s.Text(), s.alignment, style)
}

func (s *SignalLabel) flashing() bool {
	if s.flash <= 0 {
		return false
	}
	s.mu.Lock()
	changedAt := s.changedAt
	s.mu.Unlock()
	return !changedAt.IsZero() && s.now().Sub(changedAt) < s.flash
}

// Mount subscribes to signal changes.
func (s *SignalLabel) Mount(context.Context) error {
	s.mu.Lock()
	s.mounted = true
	s.mu.Unlock()
	s.subscribe()
	return nil
}

// Unmount unsubscribes from signal changes.
func (s *SignalLabel) Unmount() {
	s.mu.Lock()
	s.mounted = false
	s.mu.Unlock()
	s.subs.Clear()
}

func (s *SignalLabel) subscribe() {
	s.subs.Clear()
	if s.source == nil {
		s.setText("")
		return
	}
	s.setText(s.source.Get())
	s.subs.Observe(s.source, s.onSignal)
}

func (s *SignalLabel) onSignal() {
	s.mu.Lock()
	mounted := s.mounted
	s.mu.Unlock()
	if !mounted || s.source == nil {
		return
	}
	text := s.source.Get()
	if s.Text() == text {
		return
	}
	s.mu.Lock()
	s.text = text
	if s.flash > 0 {
		s.changedAt = s.now()
	}
	s.mu.Unlock()
	s.services.Invalidate()
	if s.flash > 0 {
		// Render once more when the flash runs out.
		s.services.After(s.flash, runtime.InvalidateMsg{})
	}
}

func (s *SignalLabel) setText(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}
