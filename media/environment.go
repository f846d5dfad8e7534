package media

import (
	"fmt"
	"sync"

	"github.com/odvcencio/furry-media/query"
	"github.com/odvcencio/furry-media/state"
)

// Environment is an in-memory host. It evaluates queries against a set of
// query.Values and notifies listeners when a change in values flips a
// query's result.
//
// Events are delivered in the order the changes were made. A goroutine that
// changes values while another is still delivering queues its events, and
// the delivering goroutine runs them before it returns. A list is evaluated
// only while it has listeners.
type Environment struct {
	mu          sync.Mutex
	values      query.Values
	lists       []*list
	unavailable bool
	pending     []event
	dispatching bool
}

// NewEnvironment creates a host with the given values.
func NewEnvironment(values query.Values) *Environment {
	return &Environment{values: values}
}

// Available reports whether the environment accepts live listeners.
func (e *Environment) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.unavailable
}

// SetAvailable marks the environment as able or unable to observe media.
func (e *Environment) SetAvailable(available bool) {
	e.mu.Lock()
	e.unavailable = !available
	e.mu.Unlock()
}

// MatchMedia parses query and returns a list for it. The list joins the
// environment when its first listener is added.
func (e *Environment) MatchMedia(q string) (QueryList, error) {
	conds, err := query.Parse(q)
	if err != nil {
		return nil, fmt.Errorf("match media: %w", err)
	}
	return &list{env: e, query: q, conds: conds}, nil
}

// Values returns the current environment values.
func (e *Environment) Values() query.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values
}

// Set replaces the environment values and fires listeners of every list
// whose result changed.
func (e *Environment) Set(values query.Values) {
	e.Update(func(v *query.Values) { *v = values })
}

// Resize updates the viewport size.
func (e *Environment) Resize(width, height int) {
	e.Update(func(v *query.Values) {
		v.Width = width
		v.Height = height
	})
}

// Update mutates the values in place and fires listeners of every list whose
// result changed, in list order.
func (e *Environment) Update(fn func(*query.Values)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	fn(&e.values)
	for _, l := range e.lists {
		matches := e.values.Match(l.conds)
		if l.matches != matches {
			l.matches = matches
			e.pending = append(e.pending, event{list: l, matches: matches})
		}
	}
	e.mu.Unlock()
	e.drain()
}

// Fire forces an event with the given result on every listened list for q,
// even if the result did not change. It returns the number of lists
// notified.
func (e *Environment) Fire(q string, matches bool) int {
	e.mu.Lock()
	n := 0
	for _, l := range e.lists {
		if l.query != q {
			continue
		}
		l.matches = matches
		e.pending = append(e.pending, event{list: l, matches: matches})
		n++
	}
	e.mu.Unlock()
	e.drain()
	return n
}

// ListenerCount returns the number of listeners across all lists.
func (e *Environment) ListenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, l := range e.lists {
		n += l.listeners.Len()
	}
	return n
}

// ListCount returns the number of lists that have listeners.
func (e *Environment) ListCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lists)
}

// drain delivers queued events until none are left. Only one goroutine
// delivers at a time; the others return after queueing.
func (e *Environment) drain() {
	e.mu.Lock()
	if e.dispatching {
		e.mu.Unlock()
		return
	}
	e.dispatching = true
	e.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			// A listener panicked.
			e.mu.Lock()
			e.dispatching = false
			e.mu.Unlock()
		}
	}()
	for {
		e.mu.Lock()
		events := e.pending
		e.pending = nil
		if len(events) == 0 {
			// Cleared under the same lock that saw the queue empty, so a
			// concurrent Update either queued before this or drains itself.
			e.dispatching = false
			e.mu.Unlock()
			finished = true
			return
		}
		e.mu.Unlock()
		for _, ev := range events {
			for _, fn := range ev.list.listeners.Snapshot() {
				fn(ev.matches)
			}
		}
	}
}

func (e *Environment) attach(l *list) {
	if l.attached {
		return
	}
	l.matches = e.values.Match(l.conds)
	l.attached = true
	e.lists = append(e.lists, l)
}

func (e *Environment) detach(l *list) {
	if !l.attached || l.listeners.Len() > 0 {
		return
	}
	l.attached = false
	for i, other := range e.lists {
		if other == l {
			e.lists = append(e.lists[:i], e.lists[i+1:]...)
			break
		}
	}
	kept := e.pending[:0]
	for _, ev := range e.pending {
		if ev.list != l {
			kept = append(kept, ev)
		}
	}
	e.pending = kept
}

type event struct {
	list    *list
	matches bool
}

// list fields other than listeners are guarded by env.mu.
type list struct {
	env       *Environment
	query     string
	conds     []query.Condition
	attached  bool
	matches   bool
	listeners state.Registry[func(bool)]
}

func (l *list) Query() string {
	return l.query
}

// Matches returns the last delivered result while the list has listeners,
// and evaluates the current values otherwise.
func (l *list) Matches() bool {
	l.env.mu.Lock()
	defer l.env.mu.Unlock()
	if !l.attached {
		return l.env.values.Match(l.conds)
	}
	return l.matches
}

// AddListener registers fn. Removing the last listener takes the list out of
// the environment.
func (l *list) AddListener(fn func(matches bool)) func() {
	if fn == nil {
		return func() {}
	}
	e := l.env
	e.mu.Lock()
	e.attach(l)
	remove := l.listeners.Add(fn)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			remove()
			e.detach(l)
			e.mu.Unlock()
		})
	}
}
