package runtime

import (
	"sync/atomic"

	"github.com/odvcencio/furry-media/state"
)

// wake posts msg at most once until reset, so a burst of requests from any
// goroutine produces a single message in the loop.
type wake struct {
	post    PostFunc
	msg     Message
	pending atomic.Bool
}

func newWake(post PostFunc, msg Message) *wake {
	return &wake{post: post, msg: msg}
}

func (w *wake) signal() {
	if w == nil || w.post == nil {
		return
	}
	if w.pending.CompareAndSwap(false, true) {
		if !w.post(w.msg) {
			w.pending.Store(false)
		}
	}
}

func (w *wake) reset() {
	if w == nil {
		return
	}
	w.pending.Store(false)
}

// Invalidator requests render passes with coalescing.
type Invalidator struct {
	wake *wake
}

// NewInvalidator creates an invalidator wired to a post function.
func NewInvalidator(post PostFunc) *Invalidator {
	return &Invalidator{wake: newWake(post, InvalidateMsg{})}
}

// Invalidate requests a render pass.
func (i *Invalidator) Invalidate() {
	if i == nil {
		return
	}
	i.wake.signal()
}

// NewLoopQueue creates a state queue that posts a QueueFlushMsg when work
// is enqueued. Pass it to responsive.WithScheduler to deliver store flushes
// on the loop goroutine. The returned reset func must be called before each
// flush.
func NewLoopQueue(post PostFunc) (*state.Queue, func()) {
	w := newWake(post, QueueFlushMsg{})
	return state.NewWakingQueue(w.signal), w.reset
}
