// Package media abstracts the host facility that evaluates media queries and
// reports when their results change.
package media

// Media evaluates media query strings.
type Media interface {
	MatchMedia(query string) (QueryList, error)
}

// QueryList is a live view of one query against the host.
type QueryList interface {
	Query() string
	Matches() bool
	// AddListener registers fn for match/unmatch events and returns a func
	// that removes it. Removal is idempotent.
	AddListener(fn func(matches bool)) func()
}

// Availability is implemented by hosts that can be present but unable to
// deliver live events, for example when output is not a terminal.
type Availability interface {
	Available() bool
}

// Supported reports whether m can be used for live observation.
func Supported(m Media) bool {
	if m == nil {
		return false
	}
	if a, ok := m.(Availability); ok {
		return a.Available()
	}
	return true
}
