// Package teamedia evaluates media queries for Bubble Tea programs.
//
// Size follows tea.WindowSizeMsg. Colour depth and colour scheme are read
// from the terminal through lipgloss and termenv when the host is created.
package teamedia

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/odvcencio/furry-media/media"
	"github.com/odvcencio/furry-media/query"
)

// Host is a media.Media fed by Bubble Tea messages.
type Host struct {
	*media.Environment
}

var _ media.Media = (*Host)(nil)

// New detects the terminal's colour profile and background. Size is zero
// until the first WindowSizeMsg arrives.
func New() *Host {
	return NewWithProfile(lipgloss.ColorProfile(), lipgloss.HasDarkBackground())
}

// NewWithProfile creates a host with an explicit colour profile, for tests
// and for programs that force a profile.
func NewWithProfile(profile termenv.Profile, dark bool) *Host {
	v := query.Values{Type: "tty"}
	applyProfile(&v, profile)
	if dark {
		v.ColorScheme = "dark"
	} else {
		v.ColorScheme = "light"
	}
	return &Host{Environment: media.NewEnvironment(v)}
}

// Update applies msg to the host and reports whether it changed the size.
// Call it from the model's Update before handling msg.
func (h *Host) Update(msg tea.Msg) bool {
	size, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return false
	}
	h.Environment.Update(func(v *query.Values) {
		v.Width, v.Height = size.Width, size.Height
		v.DeviceWidth, v.DeviceHeight = size.Width, size.Height
	})
	return true
}

func applyProfile(v *query.Values, profile termenv.Profile) {
	switch profile {
	case termenv.TrueColor:
		v.Color = 8
	case termenv.ANSI256:
		v.Color, v.ColorIndex = 2, 256
	case termenv.ANSI:
		v.Color, v.ColorIndex = 1, 16
	default:
		v.Monochrome = 1
	}
}
