package responsive

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/odvcencio/furry-media/log"
	"github.com/odvcencio/furry-media/media"
	"github.com/odvcencio/furry-media/query"
	"github.com/odvcencio/furry-media/state"
)

func newTestStore(t *testing.T, queries NamedQueries, values query.Values, opts ...Option) (*Store, *media.Environment, *state.ManualClock) {
	t.Helper()
	env := media.NewEnvironment(values)
	clock := state.NewManualClock(time.Unix(0, 0))
	all := append([]Option{WithMedia(env), WithClock(clock), WithLogger(log.Nop)}, opts...)
	store := New(queries, all...)
	t.Cleanup(store.Destroy)
	return store, env, clock
}

func mapPointer(s State) uintptr {
	return reflect.ValueOf(s).Pointer()
}

func TestStore_TabletScenario(t *testing.T) {
	queries := NamedQueries{"isTablet": query.D("minWidth", 768, "maxWidth", 1024)}
	store, env, clock := newTestStore(t, queries, query.Values{Width: 400, Height: 300})

	got := store.GetState()
	if known, matches := got.Known("isTablet"), got["isTablet"]; !known || matches {
		t.Fatalf("expected isTablet=false at startup, got %v", got)
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no flush for an unchanged startup value, got %d pending", clock.Pending())
	}

	calls := 0
	if _, err := store.Subscribe(func() { calls++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	env.Resize(800, 600)
	if !store.GetState().Matches("isTablet") {
		t.Fatalf("expected state to update before the debounce elapses")
	}
	clock.Advance(DefaultDebounce - time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected no notification inside the debounce window, got %d", calls)
	}
	clock.Advance(time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", calls)
	}
	if !store.GetState().Matches("isTablet") {
		t.Fatalf("expected isTablet=true after flush")
	}
}

func TestStore_EagerReadAtConstruction(t *testing.T) {
	queries := NamedQueries{
		"wide":  query.D("minWidth", 100),
		"color": query.D("color", true),
	}
	store, _, clock := newTestStore(t, queries,
		query.Values{Width: 120, Height: 40},
		WithInitialState(State{"wide": false}),
	)

	got := store.GetState()
	if !got.Matches("wide") {
		t.Fatalf("expected synchronous host result for wide, got %v", got)
	}
	if !got.Known("color") || got.Matches("color") {
		t.Fatalf("expected color=false, got %v", got)
	}

	// The host disagreed with the initial state, so a flush is pending for
	// anyone who subscribes in time.
	calls := 0
	store.Subscribe(func() { calls++ })
	clock.Advance(DefaultDebounce)
	if calls != 1 {
		t.Fatalf("expected hydration correction to notify once, got %d", calls)
	}
}

func TestStore_NoPrematureNotification(t *testing.T) {
	store, _, clock := newTestStore(t, NamedQueries{"wide": query.D("minWidth", 100)}, query.Values{Width: 80})
	calls := 0
	store.Subscribe(func() { calls++ })
	if calls != 0 {
		t.Fatalf("expected no call on subscribe, got %d", calls)
	}
	clock.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("expected no call without a state change, got %d", calls)
	}
}

func TestStore_IdempotentUnsubscribe(t *testing.T) {
	store, env, clock := newTestStore(t, NamedQueries{"wide": query.D("minWidth", 100)}, query.Values{Width: 80})
	var order []string

	unsubA, _ := store.Subscribe(func() { order = append(order, "a") })
	store.Subscribe(func() { order = append(order, "b") })
	unsubA()
	store.Subscribe(func() { order = append(order, "c") })
	unsubA()

	env.Resize(120, 24)
	clock.Advance(DefaultDebounce)
	if len(order) != 2 || order[0] != "b" || order[1] != "c" {
		t.Fatalf("expected [b c], got %v", order)
	}
}

func TestStore_CoalescesBurst(t *testing.T) {
	queries := NamedQueries{
		"wide":  query.D("minWidth", 100),
		"tall":  query.D("minHeight", 40),
		"color": query.D("color", true),
	}
	store, env, clock := newTestStore(t, queries, query.Values{Width: 80, Height: 24})

	calls := 0
	var seen State
	store.Subscribe(func() {
		calls++
		seen = store.GetState()
	})

	env.Resize(120, 24)
	clock.Advance(20 * time.Millisecond)
	env.Resize(120, 50)
	clock.Advance(20 * time.Millisecond)
	env.Update(func(v *query.Values) { v.Color = 8 })

	clock.Advance(DefaultDebounce - time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected the burst to keep pushing the flush back, got %d calls", calls)
	}
	clock.Advance(time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected one coalesced notification, got %d", calls)
	}
	want := State{"wide": true, "tall": true, "color": true}
	if !seen.Equal(want) {
		t.Fatalf("expected %v at flush time, got %v", want, seen)
	}
}

func TestStore_DedupDoesNotResetTimer(t *testing.T) {
	queries := NamedQueries{"wide": query.D("minWidth", 100)}
	store, env, clock := newTestStore(t, queries, query.Values{Width: 80})
	q := query.Build(queries["wide"])
	calls := 0
	store.Subscribe(func() { calls++ })

	env.Resize(120, 24)
	clock.Advance(30 * time.Millisecond)
	before := store.GetState()
	env.Fire(q, true)
	if mapPointer(store.GetState()) != mapPointer(before) {
		t.Fatalf("expected a redundant event to leave the snapshot untouched")
	}
	clock.Advance(30 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected the original deadline to hold, got %d calls", calls)
	}

	// A redundant event with nothing pending schedules nothing.
	env.Fire(q, true)
	if clock.Pending() != 0 {
		t.Fatalf("expected no timer for a redundant event, got %d", clock.Pending())
	}
}

func TestStore_NotifyAlwaysResetsTimer(t *testing.T) {
	queries := NamedQueries{"wide": query.D("minWidth", 100)}
	store, env, clock := newTestStore(t, queries, query.Values{Width: 80}, WithNotifyPolicy(NotifyAlways))
	q := query.Build(queries["wide"])
	calls := 0
	store.Subscribe(func() { calls++ })
	// The eager startup read counts as an event under this policy.
	clock.Advance(DefaultDebounce)
	calls = 0

	env.Resize(120, 24)
	clock.Advance(30 * time.Millisecond)
	env.Fire(q, true)
	clock.Advance(30 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected redundant event to push the flush back, got %d", calls)
	}
	clock.Advance(30 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}
}

func TestStore_InitialStateOnly(t *testing.T) {
	env := media.NewEnvironment(query.Values{Width: 10})
	env.SetAvailable(false)
	clock := state.NewManualClock(time.Unix(0, 0))
	store := New(
		NamedQueries{"foo": query.D("minWidth", 100)},
		WithMedia(env),
		WithClock(clock),
		WithInitialState(State{"foo": true}),
		WithLogger(log.Nop),
	)
	defer store.Destroy()

	if store.Live() {
		t.Fatalf("expected store not to register with an unavailable host")
	}
	calls := 0
	store.Subscribe(func() { calls++ })

	if n := env.Fire("(min-width: 100px)", false); n != 0 {
		t.Fatalf("expected no registered lists, got %d", n)
	}
	env.Resize(500, 500)
	env.Resize(1, 1)
	clock.Advance(time.Second)

	if !store.GetState().Matches("foo") {
		t.Fatalf("expected foo to stay true")
	}
	if !store.GetState().Equal(State{"foo": true}) {
		t.Fatalf("expected state to equal the initial state, got %v", store.GetState())
	}
	if calls != 0 {
		t.Fatalf("expected no notifications, got %d", calls)
	}
	if env.ListenerCount() != 0 {
		t.Fatalf("expected no host listeners, got %d", env.ListenerCount())
	}
}

func TestStore_NoMedia(t *testing.T) {
	store := New(NamedQueries{"foo": query.D("minWidth", 100)}, WithLogger(log.Nop))
	defer store.Destroy()
	if store.Live() {
		t.Fatalf("expected store without media to be static")
	}
	if len(store.GetState()) != 0 {
		t.Fatalf("expected empty state without initial values, got %v", store.GetState())
	}
	if store.ID() == "" {
		t.Fatalf("expected a store id")
	}
}

func TestStore_SnapshotsAreImmutable(t *testing.T) {
	store, env, _ := newTestStore(t, NamedQueries{"wide": query.D("minWidth", 100)}, query.Values{Width: 80})
	before := store.GetState()
	env.Resize(120, 24)
	after := store.GetState()
	if before.Matches("wide") {
		t.Fatalf("expected old snapshot to keep wide=false")
	}
	if !after.Matches("wide") {
		t.Fatalf("expected new snapshot to have wide=true")
	}
}

func TestStore_SubscribeNil(t *testing.T) {
	store, _, _ := newTestStore(t, nil, query.Values{})
	unsub, err := store.Subscribe(nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if unsub != nil {
		t.Fatalf("expected no unsubscribe func on error")
	}
}

func TestStore_FlushSnapshotsListeners(t *testing.T) {
	store, env, clock := newTestStore(t, NamedQueries{"wide": query.D("minWidth", 100)}, query.Values{Width: 80})
	var order []string
	var unsubC func()

	store.Subscribe(func() {
		order = append(order, "a")
		store.Subscribe(func() { order = append(order, "late") })
		unsubC()
	})
	store.Subscribe(func() { order = append(order, "b") })
	unsubC, _ = store.Subscribe(func() { order = append(order, "c") })

	env.Resize(120, 24)
	clock.Advance(DefaultDebounce)
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected [a b c] in the first flush, got %v", order)
	}

	order = nil
	env.Resize(80, 24)
	clock.Advance(DefaultDebounce)
	// a adds another "late" listener each flush; c is gone.
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "late" {
		t.Fatalf("expected [a b late] in the second flush, got %v", order)
	}
}

func TestStore_ListenerPanicIsolated(t *testing.T) {
	var reported []error
	store, env, clock := newTestStore(t,
		NamedQueries{"wide": query.D("minWidth", 100)},
		query.Values{Width: 80},
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	second := 0
	store.Subscribe(func() { panic("boom") })
	store.Subscribe(func() { second++ })

	env.Resize(120, 24)
	clock.Advance(DefaultDebounce)
	if second != 1 {
		t.Fatalf("expected later listener to run despite the panic, got %d", second)
	}
	if len(reported) != 1 || !errors.Is(reported[0], ErrListenerPanic) {
		t.Fatalf("expected one listener panic report, got %v", reported)
	}
	var lerr *ListenerError
	if !errors.As(reported[0], &lerr) || lerr.Index != 0 || lerr.Value != "boom" {
		t.Fatalf("unexpected listener error %#v", reported[0])
	}
}

func TestStore_Destroy(t *testing.T) {
	store, env, clock := newTestStore(t,
		NamedQueries{"wide": query.D("minWidth", 100), "tall": query.D("minHeight", 40)},
		query.Values{Width: 80, Height: 24},
	)
	if env.ListenerCount() != 2 {
		t.Fatalf("expected 2 host listeners, got %d", env.ListenerCount())
	}
	calls := 0
	store.Subscribe(func() { calls++ })
	env.Resize(120, 24)

	store.Destroy()
	store.Destroy()
	if env.ListenerCount() != 0 {
		t.Fatalf("expected host listeners to be removed, got %d", env.ListenerCount())
	}
	clock.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("expected pending flush to be cancelled, got %d", calls)
	}
	if !store.GetState().Matches("wide") {
		t.Fatalf("expected last state to stay readable")
	}
	unsub, err := store.Subscribe(func() { calls++ })
	if err != nil || unsub == nil {
		t.Fatalf("expected subscribe after destroy to be a harmless no-op, got %v", err)
	}
	unsub()
}

func TestStore_RegistrationErrorReported(t *testing.T) {
	var reported []error
	store, _, _ := newTestStore(t,
		NamedQueries{
			"broken": query.D("orientation", "a)b"),
			"wide":   query.D("minWidth", 100),
		},
		query.Values{Width: 120},
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	if len(reported) != 1 || !errors.Is(reported[0], query.ErrSyntax) {
		t.Fatalf("expected one syntax error report, got %v", reported)
	}
	got := store.GetState()
	if !got.Known("broken") || got.Matches("broken") {
		t.Fatalf("expected broken query to stay false, got %v", got)
	}
	if !got.Matches("wide") {
		t.Fatalf("expected other queries to register normally, got %v", got)
	}
}

func TestStore_Scheduler(t *testing.T) {
	queue := state.NewQueue()
	store, env, clock := newTestStore(t,
		NamedQueries{"wide": query.D("minWidth", 100)},
		query.Values{Width: 80},
		WithScheduler(queue),
	)
	calls := 0
	store.Subscribe(func() { calls++ })

	env.Resize(120, 24)
	clock.Advance(DefaultDebounce)
	if calls != 0 || queue.Len() != 1 {
		t.Fatalf("expected flush to be queued, got calls=%d queued=%d", calls, queue.Len())
	}
	queue.Flush()
	if calls != 1 {
		t.Fatalf("expected listener to run on queue flush, got %d", calls)
	}
}

func TestStore_CustomDebounce(t *testing.T) {
	store, env, clock := newTestStore(t,
		NamedQueries{"wide": query.D("minWidth", 100)},
		query.Values{Width: 80},
		WithDebounce(5*time.Millisecond),
	)
	calls := 0
	store.Subscribe(func() { calls++ })
	env.Resize(120, 24)
	clock.Advance(5 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected flush after 5ms, got %d", calls)
	}
}

func TestStore_Independent(t *testing.T) {
	queries := NamedQueries{"wide": query.D("minWidth", 100)}
	a, envA, clock := newTestStore(t, queries, query.Values{Width: 80})
	b, _, _ := newTestStore(t, queries, query.Values{Width: 80})
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct store ids")
	}
	callsB := 0
	b.Subscribe(func() { callsB++ })
	envA.Resize(120, 24)
	clock.Advance(DefaultDebounce)
	if b.GetState().Matches("wide") || callsB != 0 {
		t.Fatalf("expected store b to be unaffected by store a's host")
	}
}

func TestStore_AgreesWithHostAfterConcurrentResizes(t *testing.T) {
	queries := NamedQueries{"wide": query.D("minWidth", 100)}
	env := media.NewEnvironment(query.Values{Width: 80, Height: 24})

	// A slower consumer of the same query registered ahead of the store.
	slow, err := env.MatchMedia(query.Build(queries["wide"]))
	if err != nil {
		t.Fatalf("match media: %v", err)
	}
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	remove := slow.AddListener(func(bool) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})
	defer remove()

	store := New(queries, WithMedia(env), WithClock(state.NewManualClock(time.Unix(0, 0))), WithLogger(log.Nop))
	defer store.Destroy()

	done := make(chan struct{})
	go func() {
		env.Resize(120, 24)
		close(done)
	}()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatalf("resize to 120 was not delivered")
	}
	env.Resize(80, 24)
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("resize to 120 did not finish")
	}

	fresh, _ := env.MatchMedia(query.Build(queries["wide"]))
	if host, got := fresh.Matches(), store.GetState().Matches("wide"); host != got {
		t.Fatalf("expected store to follow the host: host=%v store=%v", host, got)
	}
	if store.GetState().Matches("wide") {
		t.Fatalf("expected wide=false at width 80")
	}
}

func TestStore_DestroyReleasesHostLists(t *testing.T) {
	queries := NamedQueries{"wide": query.D("minWidth", 100), "tall": query.D("minHeight", 40)}
	env := media.NewEnvironment(query.Values{Width: 80, Height: 24})
	a := New(queries, WithMedia(env), WithLogger(log.Nop))
	b := New(queries, WithMedia(env), WithLogger(log.Nop))
	defer b.Destroy()
	if env.ListCount() != 4 {
		t.Fatalf("expected 4 host lists, got %d", env.ListCount())
	}

	a.Destroy()
	if env.ListCount() != 2 {
		t.Fatalf("expected destroyed store's lists to be dropped, got %d", env.ListCount())
	}
	env.Resize(120, 24)
	if !b.GetState().Matches("wide") {
		t.Fatalf("expected remaining store to keep observing")
	}
}

type recordingObserver struct {
	matches   []bool
	changed   []bool
	flushes   []int
	listenErr int
}

func (r *recordingObserver) OnMatch(_, _ string, matches, changed bool) {
	r.matches = append(r.matches, matches)
	r.changed = append(r.changed, changed)
}

func (r *recordingObserver) OnFlush(_ string, listeners int, _ time.Time, _ time.Duration) {
	r.flushes = append(r.flushes, listeners)
}

func (r *recordingObserver) OnListenerError(string, error) {
	r.listenErr++
}

func TestStore_Observer(t *testing.T) {
	obs := &recordingObserver{}
	queries := NamedQueries{"wide": query.D("minWidth", 100)}
	store, env, clock := newTestStore(t, queries, query.Values{Width: 80}, WithObserver(obs))
	store.Subscribe(func() {})
	store.Subscribe(func() { panic(errors.New("bad listener")) })

	env.Resize(120, 24)
	env.Fire(query.Build(queries["wide"]), true)
	clock.Advance(DefaultDebounce)

	// startup read, change, redundant event
	if len(obs.changed) != 3 || obs.changed[0] || !obs.changed[1] || obs.changed[2] {
		t.Fatalf("unexpected changed flags %v", obs.changed)
	}
	if len(obs.flushes) != 1 || obs.flushes[0] != 2 {
		t.Fatalf("expected one flush of 2 listeners, got %v", obs.flushes)
	}
	if obs.listenErr != 1 {
		t.Fatalf("expected 1 listener error, got %d", obs.listenErr)
	}
}
