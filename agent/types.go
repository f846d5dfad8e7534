package agent

import (
	"time"

	"github.com/odvcencio/furry-media/responsive"
)

// Snapshot captures the rendered screen and the media state behind it.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Text      string           `json:"text,omitempty"`
	StoreID   string           `json:"store_id,omitempty"`
	State     responsive.State `json:"state,omitempty"`
}

// Matching returns the keys that currently match, in sorted order.
func (s Snapshot) Matching() []string {
	var keys []string
	for _, key := range s.State.Keys() {
		if s.State.Matches(key) {
			keys = append(keys, key)
		}
	}
	return keys
}
