package state

import "sync"

// Subscriptions collects unsubscribe funcs so a component can drop all of
// them at once when it unmounts.
type Subscriptions struct {
	mu     sync.Mutex
	unsubs []func()
	sched  Scheduler
}

// NewSubscriptions creates a Subscriptions with a default scheduler.
func NewSubscriptions(scheduler Scheduler) *Subscriptions {
	return &Subscriptions{sched: scheduler}
}

// SetScheduler updates the default scheduler.
func (s *Subscriptions) SetScheduler(scheduler Scheduler) {
	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()
}

// Add tracks an unsubscribe callback.
func (s *Subscriptions) Add(unsub func()) {
	if unsub == nil {
		return
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
}

// Observe subscribes fn to sub. When a default scheduler is set, fn is
// dispatched through it.
func (s *Subscriptions) Observe(sub Subscribable, fn func()) {
	if sub == nil || fn == nil {
		return
	}
	s.mu.Lock()
	scheduler := s.sched
	s.mu.Unlock()

	callback := fn
	if scheduler != nil {
		callback = func() { scheduler.Schedule(fn) }
	}
	s.Add(sub.Subscribe(callback))
}

// Len returns the number of tracked subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsubs)
}

// Clear unsubscribes everything tracked so far.
func (s *Subscriptions) Clear() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}
