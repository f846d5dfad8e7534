// Package responsive keeps a boolean map of which named media queries match
// and tells subscribers when it changes.
//
// State is updated as soon as the host reports a match or unmatch, so
// GetState is always current. Notification is debounced: a burst of events
// produces a single call to each listener once the host has been quiet for
// the debounce period. Listeners receive no arguments and read GetState
// themselves, since several transitions may have been coalesced.
package responsive

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/furry-media/media"
	"github.com/odvcencio/furry-media/query"
	"github.com/odvcencio/furry-media/state"
)

// Source is what a UI layer needs from a store.
type Source interface {
	Subscribe(listener func()) (func(), error)
	GetState() State
}

// Store tracks named media queries. Create one per application root with
// New; the zero value is not usable.
type Store struct {
	id        string
	queries   NamedQueries
	opts      options
	live      bool
	debouncer *state.Debouncer
	listeners state.Registry[func()]

	mu        sync.Mutex
	state     State
	removers  []func()
	destroyed bool
}

var _ Source = (*Store)(nil)

// New creates a store for queries.
//
// When the configured host supports live observation, every key missing from
// the initial state starts as false, each query is registered with the host
// and its current result is read before New returns. Otherwise no listeners
// are registered and the state stays exactly the initial state.
func New(queries NamedQueries, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	s := &Store{
		id:      ulid.Make().String(),
		queries: queries,
		opts:    o,
	}
	s.debouncer = state.NewDebouncer(o.clock, o.debounce, s.scheduleFlush)

	if !media.Supported(o.media) {
		s.state = o.initial.Clone()
		o.logger.Debugf("responsive store %s: live media unavailable, serving initial state", s.id)
		return s
	}

	s.live = true
	seed := o.initial.Clone()
	for key := range queries {
		if _, ok := seed[key]; !ok {
			seed[key] = false
		}
	}
	s.state = seed
	for _, key := range queries.Keys() {
		s.register(key, queries[key])
	}
	return s
}

// ID identifies the store in logs and metrics.
func (s *Store) ID() string {
	return s.id
}

// Live reports whether the store registered with a host.
func (s *Store) Live() bool {
	return s.live
}

// GetState returns the latest snapshot. It never waits for a flush.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers listener to be called after each debounced change.
// It is not called immediately. The returned func removes the listener and
// may be called any number of times.
func (s *Store) Subscribe(listener func()) (func(), error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: listener is nil", ErrInvalidArgument)
	}
	s.mu.Lock()
	destroyed := s.destroyed
	s.mu.Unlock()
	if destroyed {
		return func() {}, nil
	}
	return s.listeners.Add(listener), nil
}

// Destroy removes every host listener, cancels any pending flush and drops
// all subscribers. The last state stays readable. Destroy is idempotent.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	removers := s.removers
	s.removers = nil
	s.mu.Unlock()

	s.debouncer.Stop()
	for _, remove := range removers {
		remove()
	}
	s.listeners.Clear()
	s.opts.logger.Debugf("responsive store %s: destroyed", s.id)
}

func (s *Store) register(key string, d query.Descriptor) {
	q := query.Build(d)
	list, err := s.opts.media.MatchMedia(q)
	if err != nil {
		s.report(fmt.Errorf("register %q (%s): %w", key, q, err))
		return
	}
	handler := func(matches bool) {
		s.handle(key, matches)
	}
	remove := list.AddListener(handler)

	s.mu.Lock()
	s.removers = append(s.removers, remove)
	s.mu.Unlock()

	s.opts.logger.Debugf("responsive store %s: registered %s -> %q", s.id, key, q)
	handler(list.Matches())
}

// handle applies one host event for key.
func (s *Store) handle(key string, matches bool) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	prev, known := s.state[key]
	changed := !known || prev != matches
	if !changed && s.opts.policy == NotifyOnChange {
		s.mu.Unlock()
		s.observeMatch(key, matches, false)
		return
	}
	s.state = s.state.with(key, matches)
	s.mu.Unlock()

	s.debouncer.Trigger()
	s.observeMatch(key, matches, changed)
}

func (s *Store) scheduleFlush() {
	if s.opts.scheduler == nil {
		s.flush()
		return
	}
	s.opts.scheduler.Schedule(s.flush)
}

// flush calls the listeners registered when it starts, in order.
func (s *Store) flush() {
	s.mu.Lock()
	destroyed := s.destroyed
	s.mu.Unlock()
	if destroyed {
		return
	}
	listeners := s.listeners.Snapshot()
	started := s.opts.clock.Now()
	for i, listener := range listeners {
		s.invoke(i, listener)
	}
	elapsed := s.opts.clock.Now().Sub(started)
	s.opts.logger.Debugf("responsive store %s: flushed %d listeners in %s", s.id, len(listeners), elapsed)
	if s.opts.observer != nil {
		s.opts.observer.OnFlush(s.id, len(listeners), started, elapsed)
	}
}

func (s *Store) invoke(index int, listener func()) {
	defer func() {
		if r := recover(); r != nil {
			err := &ListenerError{Index: index, Value: r}
			s.report(err)
			if s.opts.observer != nil {
				s.opts.observer.OnListenerError(s.id, err)
			}
		}
	}()
	listener()
}

func (s *Store) report(err error) {
	s.opts.logger.Errorf("responsive store %s: %v", s.id, err)
	if s.opts.onError != nil {
		s.opts.onError(err)
	}
}

func (s *Store) observeMatch(key string, matches, changed bool) {
	if s.opts.observer != nil {
		s.opts.observer.OnMatch(s.id, key, matches, changed)
	}
}
