package widgets

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/furry-media/responsive"
)

// Responsive follows the media store found in its mount context and keeps
// the latest snapshot. Embed it in widgets whose layout depends on media
// queries.
type Responsive struct {
	Component
	onChange func(responsive.State)

	mu      sync.Mutex
	src     responsive.Source
	current responsive.State
	mounted bool
}

// NewResponsive creates an adapter. onChange, if set, runs after every store
// flush while mounted, on the app loop when the component is bound.
func NewResponsive(onChange func(responsive.State)) *Responsive {
	return &Responsive{onChange: onChange}
}

// Mount looks the store up with responsive.FromContext and subscribes to it.
func (r *Responsive) Mount(ctx context.Context) error {
	src, err := responsive.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("mount responsive widget: %w", err)
	}
	r.Subs.Clear()
	r.mu.Lock()
	r.src = src
	r.current = src.GetState()
	r.mounted = true
	r.mu.Unlock()
	r.Observe(responsive.Changes(src), r.refresh)
	return nil
}

// Unmount drops the store subscription. Notifications already queued are
// ignored.
func (r *Responsive) Unmount() {
	r.mu.Lock()
	r.mounted = false
	r.mu.Unlock()
	r.Subs.Clear()
}

// State returns the snapshot taken at mount or at the last flush.
func (r *Responsive) State() responsive.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Matches reports whether key matched at the last refresh.
func (r *Responsive) Matches(key string) bool {
	return r.State().Matches(key)
}

func (r *Responsive) refresh() {
	r.mu.Lock()
	if !r.mounted || r.src == nil {
		r.mu.Unlock()
		return
	}
	current := r.src.GetState()
	r.current = current
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(current)
	}
	r.Invalidate()
}
