package state

import "sync"

type entry[T any] struct {
	id    uint64
	value T
}

// Registry is an ordered collection of values keyed by identity.
// Add is O(1) amortized, removal is O(n). Ids are never reused, so a stale
// remove func cannot drop a value added later.
type Registry[T any] struct {
	mu      sync.Mutex
	entries []entry[T]
	next    uint64
}

// Add appends v and returns a func that removes it. The returned func is
// idempotent.
func (r *Registry[T]) Add(v T) func() {
	r.mu.Lock()
	r.next++
	id := r.next
	r.entries = append(r.entries, entry[T]{id: id, value: v})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(id)
		})
	}
}

func (r *Registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id != id {
			continue
		}
		copy(r.entries[i:], r.entries[i+1:])
		var zero entry[T]
		r.entries[len(r.entries)-1] = zero
		r.entries = r.entries[:len(r.entries)-1]
		return
	}
}

// Snapshot returns the current values in registration order.
// The slice is a copy; later Add or remove calls do not affect it.
func (r *Registry[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	values := make([]T, len(r.entries))
	for i, e := range r.entries {
		values[i] = e.value
	}
	return values
}

// Len returns the number of registered values.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear drops every value. Outstanding remove funcs become no-ops.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
