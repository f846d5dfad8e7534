// Package widgets provides small tcell widgets that follow a media store.
package widgets

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-media/runtime"
)

// Alignment controls horizontal text placement.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// drawString writes s at x,y and returns the number of cells used. Wide
// runes take two cells.
func drawString(screen tcell.Screen, x, y int, s string, style tcell.Style) int {
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		screen.SetContent(x+used, y, r, nil, style)
		used += w
	}
	return used
}

// drawAligned draws one line of text clipped to bounds.Width.
func drawAligned(screen tcell.Screen, bounds runtime.Rect, y int, text string, align Alignment, style tcell.Style) {
	if bounds.Width <= 0 || y < bounds.Y || y >= bounds.Y+bounds.Height {
		return
	}
	text = truncateString(text, bounds.Width)
	width := runewidth.StringWidth(text)
	x := bounds.X
	switch align {
	case AlignCenter:
		x += (bounds.Width - width) / 2
	case AlignRight:
		x += bounds.Width - width
	}
	drawString(screen, x, y, text, style)
}

// truncateString truncates a string to fit within maxWidth cells.
// Adds "..." if truncated.
func truncateString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
