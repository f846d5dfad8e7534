package responsive

import (
	"time"

	"github.com/odvcencio/furry-media/log"
	"github.com/odvcencio/furry-media/media"
	"github.com/odvcencio/furry-media/state"
)

// DefaultDebounce is the quiet period before listeners are notified.
const DefaultDebounce = 60 * time.Millisecond

// NotifyPolicy decides which host events reset the debounce timer.
type NotifyPolicy int

const (
	// NotifyOnChange ignores events that repeat the stored value.
	NotifyOnChange NotifyPolicy = iota
	// NotifyAlways treats every event as a change, even when the value is
	// the same, so redundant events keep pushing the flush back.
	NotifyAlways
)

func (p NotifyPolicy) String() string {
	switch p {
	case NotifyAlways:
		return "always"
	default:
		return "change"
	}
}

// Observer receives store activity for metrics and tracing.
type Observer interface {
	// OnMatch is called for every host event. changed is false when the
	// event repeated the stored value.
	OnMatch(storeID, key string, matches, changed bool)
	// OnFlush is called after listeners were notified.
	OnFlush(storeID string, listeners int, started time.Time, elapsed time.Duration)
	// OnListenerError is called when a listener panicked.
	OnListenerError(storeID string, err error)
}

type options struct {
	media     media.Media
	initial   State
	debounce  time.Duration
	clock     state.Clock
	scheduler state.Scheduler
	policy    NotifyPolicy
	onError   func(error)
	logger    log.Logger
	observer  Observer
}

func defaultOptions() options {
	return options{
		debounce: DefaultDebounce,
		clock:    state.SystemClock,
		policy:   NotifyOnChange,
		logger:   log.Default,
	}
}

// Option configures a Store.
type Option func(*options)

// WithMedia sets the host used for live observation. Without it, or when
// the host reports itself unavailable, the store only serves the initial
// state.
func WithMedia(m media.Media) Option {
	return func(o *options) {
		o.media = m
	}
}

// WithInitialState seeds the store, for example to hydrate from values
// computed elsewhere when no live host is available.
func WithInitialState(initial State) Option {
	return func(o *options) {
		o.initial = initial
	}
}

// WithDebounce sets the quiet period before listeners are notified.
// Negative values are treated as zero.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.debounce = d
	}
}

// WithClock sets the clock driving the debounce timer.
func WithClock(clock state.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithScheduler sets where flushes run. By default a flush runs on the
// timer's goroutine; pass a state.Queue to move it onto an event loop.
func WithScheduler(scheduler state.Scheduler) Option {
	return func(o *options) {
		o.scheduler = scheduler
	}
}

// WithNotifyPolicy selects how redundant host events are treated.
func WithNotifyPolicy(policy NotifyPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithErrorHandler receives registration failures and listener panics.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithLogger replaces log.Default for this store.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver attaches metrics/tracing hooks.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}
