package state

import "testing"

func layoutOf(wide, tall *Signal[bool]) func() string {
	return func() string {
		switch {
		case wide.Get() && tall.Get():
			return "grid"
		case wide.Get():
			return "columns"
		default:
			return "stack"
		}
	}
}

func TestComputed_FollowsDependencies(t *testing.T) {
	wide := NewSignal(false)
	tall := NewSignal(false)
	layout := NewComputed(layoutOf(wide, tall), wide, tall)
	layout.SetEqualFunc(EqualComparable[string])

	if got := layout.Get(); got != "stack" {
		t.Fatalf("expected stack, got %q", got)
	}

	var seen []string
	unsub := layout.Subscribe(func() { seen = append(seen, layout.Get()) })

	wide.Set(true)
	tall.Set(true)
	// tall flipping back while narrow leaves the layout unchanged.
	wide.Set(false)
	tall.Set(false)
	if len(seen) != 3 || seen[0] != "columns" || seen[1] != "grid" || seen[2] != "stack" {
		t.Fatalf("expected [columns grid stack], got %v", seen)
	}

	unsub()
	wide.Set(true)
	if len(seen) != 3 {
		t.Fatalf("expected no notifications after unsubscribe, got %v", seen)
	}
	if got := layout.Get(); got != "columns" {
		t.Fatalf("expected value to keep tracking without subscribers, got %q", got)
	}
}

func TestComputed_StopDetaches(t *testing.T) {
	wide := NewSignal(true)
	tall := NewSignal(false)
	layout := NewComputed(layoutOf(wide, tall), wide, tall)

	layout.Stop()
	layout.Stop()
	tall.Set(true)
	if got := layout.Get(); got != "columns" {
		t.Fatalf("expected last value after stop, got %q", got)
	}
}

func TestComputed_QueuedRecompute(t *testing.T) {
	wide := NewSignal(false)
	tall := NewSignal(false)
	queue := NewQueue()
	layout := NewComputedWithScheduler(queue, layoutOf(wide, tall), wide, tall)

	wide.Set(true)
	tall.Set(true)
	if got := layout.Get(); got != "stack" {
		t.Fatalf("expected recompute to wait for the queue, got %q", got)
	}
	if flushed := queue.Flush(); flushed != 2 {
		t.Fatalf("expected 2 queued recomputes, got %d", flushed)
	}
	if got := layout.Get(); got != "grid" {
		t.Fatalf("expected grid after flush, got %q", got)
	}
}

func TestComputed_NilCompute(t *testing.T) {
	c := NewComputed[int](nil)
	if c.Get() != 0 {
		t.Fatalf("expected zero value, got %d", c.Get())
	}
	var nilComputed *Computed[int]
	nilComputed.Stop()
	if nilComputed.Get() != 0 {
		t.Fatalf("expected nil computed to read zero")
	}
}
