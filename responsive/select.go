package responsive

import "github.com/odvcencio/furry-media/state"

type changes struct {
	src Source
}

func (c changes) Subscribe(fn func()) func() {
	unsub, err := c.src.Subscribe(fn)
	if err != nil {
		return func() {}
	}
	return unsub
}

// Changes adapts src to state.Subscribable so it can drive Computed values
// and state.Subscriptions.
func Changes(src Source) state.Subscribable {
	return changes{src: src}
}

// Select derives a value from the store. It is recomputed after every flush
// and only notifies its own subscribers when the equality func (if set)
// reports a difference. Call Stop on the result to detach it.
func Select[T any](src Source, fn func(State) T) *state.Computed[T] {
	return state.NewComputed(func() T {
		return fn(src.GetState())
	}, Changes(src))
}

// Watch tracks a single key. Subscribers are only notified when that key
// flips.
func Watch(src Source, key string) *state.Computed[bool] {
	c := Select(src, func(s State) bool {
		return s.Matches(key)
	})
	c.SetEqualFunc(state.EqualComparable[bool])
	return c
}
