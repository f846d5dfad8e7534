package widgets

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-media/query"
	"github.com/odvcencio/furry-media/responsive"
	"github.com/odvcencio/furry-media/runtime"
)

// MatchTable lists each named query, whether it matches and the query
// string it was built from.
type MatchTable struct {
	Responsive
	title      string
	queries    responsive.NamedQueries
	style      tcell.Style
	matchStyle tcell.Style
}

// NewMatchTable creates a table for queries.
func NewMatchTable(title string, queries responsive.NamedQueries) *MatchTable {
	return &MatchTable{
		title:      title,
		queries:    queries,
		style:      tcell.StyleDefault,
		matchStyle: tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
	}
}

// SetStyles sets the style for unmatched and matched rows.
func (t *MatchTable) SetStyles(style, match tcell.Style) {
	t.style = style
	t.matchStyle = match
}

// Rows returns one formatted line per query in key order.
func (t *MatchTable) Rows() []string {
	keys := t.queries.Keys()
	keyWidth := 0
	for _, key := range keys {
		keyWidth = max(keyWidth, runewidth.StringWidth(key))
	}
	current := t.State()
	rows := make([]string, 0, len(keys))
	for _, key := range keys {
		mark := "·"
		if current.Matches(key) {
			mark = "✓"
		}
		rows = append(rows, mark+" "+padRight(key, keyWidth)+"  "+query.Build(t.queries[key]))
	}
	return rows
}

// Render draws the title and rows inside bounds.
func (t *MatchTable) Render(screen tcell.Screen, bounds runtime.Rect) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return
	}
	y := bounds.Y
	if t.title != "" {
		drawAligned(screen, bounds, y, t.title, AlignLeft, t.style.Bold(true))
		y++
	}
	keys := t.queries.Keys()
	current := t.State()
	for i, row := range t.Rows() {
		if y >= bounds.Y+bounds.Height {
			break
		}
		style := t.style
		if current.Matches(keys[i]) {
			style = t.matchStyle
		}
		drawAligned(screen, bounds, y, row, AlignLeft, style)
		y++
	}
}
