package responsive

import (
	"sort"

	"github.com/odvcencio/furry-media/query"
)

// NamedQueries maps a state key to the media condition it tracks.
type NamedQueries map[string]query.Descriptor

// Keys returns the query keys in sorted order.
func (q NamedQueries) Keys() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// State records whether each named query currently matches.
//
// A State returned by the store is a snapshot: the store never modifies it
// after handing it out, and callers must not modify it either.
type State map[string]bool

// Matches reports whether key matches. Unknown keys do not match.
func (s State) Matches(key string) bool {
	return s[key]
}

// Known reports whether the host has produced a value for key.
func (s State) Known(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a mutable copy. A nil State clones to an empty one.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both states hold the same entries.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// with returns a new State with key set to value.
func (s State) with(key string, value bool) State {
	next := make(State, len(s)+1)
	for k, v := range s {
		next[k] = v
	}
	next[key] = value
	return next
}
