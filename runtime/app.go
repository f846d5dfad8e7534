// Package runtime runs a tcell event loop that owns a live media host and a
// responsive store. Resize events feed the host, and store flushes are
// delivered on the loop goroutine through a state queue.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/odvcencio/furry-media/log"
	"github.com/odvcencio/furry-media/media/tcellmedia"
	"github.com/odvcencio/furry-media/responsive"
	"github.com/odvcencio/furry-media/state"
)

// UpdateFunc handles a message and returns true if a render is needed.
type UpdateFunc func(app *App, msg Message) bool

// CommandHandler handles commands the app does not know.
// Return true if the command requires a render.
type CommandHandler func(cmd Command) bool

// AppConfig configures a runtime App.
type AppConfig struct {
	// Screen is initialised by Run and finalised when it returns.
	Screen tcell.Screen
	Root   Widget
	// Queries are tracked by the app's store against the screen.
	Queries responsive.NamedQueries
	// StoreOptions are applied after the app's own media, scheduler and
	// logger options, so they can override them.
	StoreOptions   []responsive.Option
	Update         UpdateFunc
	CommandHandler CommandHandler
	MessageBuffer  int
	TickRate       time.Duration
	FlushPolicy    QueueFlushPolicy
	Logger         log.Logger
}

// App runs a widget tree against a tcell screen.
type App struct {
	screen         tcell.Screen
	host           *tcellmedia.Host
	store          *responsive.Store
	queries        responsive.NamedQueries
	storeOptions   []responsive.Option
	root           Widget
	update         UpdateFunc
	commandHandler CommandHandler
	messages       chan Message
	tickRate       time.Duration
	stateQueue     *state.Queue
	resetQueue     func()
	flushPolicy    QueueFlushPolicy
	invalidator    *Invalidator
	logger         log.Logger
	taskCtx        context.Context
	taskCancel     context.CancelFunc
	pendingMu      sync.Mutex
	pendingEffects []Effect
	ready          chan struct{}
	readyOnce      sync.Once

	running bool
	dirty   bool
}

// NewApp creates a new App from config.
func NewApp(cfg AppConfig) *App {
	bufferSize := cfg.MessageBuffer
	if bufferSize <= 0 {
		bufferSize = 128
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default
	}
	app := &App{
		screen:         cfg.Screen,
		queries:        cfg.Queries,
		storeOptions:   cfg.StoreOptions,
		root:           cfg.Root,
		update:         cfg.Update,
		commandHandler: cfg.CommandHandler,
		messages:       make(chan Message, bufferSize),
		tickRate:       cfg.TickRate,
		flushPolicy:    cfg.FlushPolicy,
		logger:         logger,
		ready:          make(chan struct{}),
	}
	app.stateQueue, app.resetQueue = NewLoopQueue(app.tryPost)
	app.invalidator = NewInvalidator(app.tryPost)
	return app
}

// Store returns the app's media store. It is nil until Run starts.
func (a *App) Store() *responsive.Store {
	if a == nil {
		return nil
	}
	return a.store
}

// Host returns the media host fed by screen events. It is nil until Run
// starts.
func (a *App) Host() *tcellmedia.Host {
	if a == nil {
		return nil
	}
	return a.host
}

// Ready is closed once the store exists and the root is mounted. Store and
// Host are safe to read from other goroutines after it closes.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// StateScheduler returns a scheduler that runs callbacks on the loop.
func (a *App) StateScheduler() state.Scheduler {
	if a == nil || a.stateQueue == nil {
		return nil
	}
	return a.stateQueue
}

// Invalidate requests a render pass.
func (a *App) Invalidate() {
	if a == nil || a.invalidator == nil {
		return
	}
	a.invalidator.Invalidate()
}

// Spawn starts an effect using the app task context.
// If Run has not started, the effect is queued until start.
func (a *App) Spawn(effect Effect) {
	if a == nil || effect.Run == nil {
		return
	}
	a.pendingMu.Lock()
	if a.taskCtx == nil {
		a.pendingEffects = append(a.pendingEffects, effect)
		a.pendingMu.Unlock()
		return
	}
	a.pendingMu.Unlock()
	a.runEffect(effect)
}

// After schedules a delayed message using the app task context.
func (a *App) After(delay time.Duration, msg Message) {
	a.Spawn(After(delay, msg))
}

// Every schedules a recurring message using the app task context.
func (a *App) Every(interval time.Duration, fn func(time.Time) Message) {
	a.Spawn(Every(interval, fn))
}

// Post sends a message to the event loop. It drops the message when the
// buffer is full.
func (a *App) Post(msg Message) {
	_ = a.tryPost(msg)
}

func (a *App) tryPost(msg Message) bool {
	if a == nil || a.messages == nil || msg == nil {
		return false
	}
	select {
	case a.messages <- msg:
		return true
	default:
		return false
	}
}

// Run starts the event loop until Quit or context cancellation.
func (a *App) Run(ctx context.Context) error {
	if a.screen == nil {
		return errors.New("screen is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	taskCtx, taskCancel := context.WithCancel(ctx)
	a.pendingMu.Lock()
	a.taskCtx = taskCtx
	a.taskCancel = taskCancel
	a.pendingMu.Unlock()
	defer func() {
		taskCancel()
		a.pendingMu.Lock()
		a.taskCtx = nil
		a.taskCancel = nil
		a.pendingMu.Unlock()
	}()

	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer a.screen.Fini()
	a.screen.HideCursor()

	a.host = tcellmedia.New(a.screen)
	opts := append([]responsive.Option{
		responsive.WithMedia(a.host),
		responsive.WithScheduler(a.stateQueue),
		responsive.WithLogger(a.logger),
	}, a.storeOptions...)
	a.store = responsive.New(a.queries, opts...)
	defer a.store.Destroy()
	if unsub, err := a.store.Subscribe(a.Invalidate); err == nil {
		defer unsub()
	}

	if a.root != nil {
		BindTree(a.root, a.Services())
		defer UnbindTree(a.root)
		if err := MountTree(responsive.NewContext(taskCtx, a.store), a.root); err != nil {
			UnmountTree(a.root)
			return fmt.Errorf("mount: %w", err)
		}
		defer UnmountTree(a.root)
	}

	if a.update == nil {
		a.update = DefaultUpdate
	}

	a.running = true
	a.dirty = true

	a.startPendingEffects()

	go a.pollEvents()
	a.readyOnce.Do(func() { close(a.ready) })

	var ticks <-chan time.Time
	if a.tickRate > 0 {
		ticker := time.NewTicker(a.tickRate)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for a.running {
		var msg Message
		select {
		case <-ctx.Done():
			a.running = false
			a.cancelTasks()
		case msg = <-a.messages:
			if a.update(a, msg) {
				a.dirty = true
			}
		case now := <-ticks:
			msg = TickMsg{Time: now}
			if a.update(a, msg) {
				a.dirty = true
			}
		}

		if !a.running {
			continue
		}

		if msg != nil {
			if a.flushQueueIfNeeded(msg) {
				a.dirty = true
			}
			if _, ok := msg.(InvalidateMsg); ok {
				a.invalidator.wake.reset()
			}
		}

		if a.dirty {
			a.render()
			a.dirty = false
		}
	}

	return ctx.Err()
}

// DefaultUpdate feeds resizes to the media host, quits on Ctrl+C and passes
// everything else to the root widget.
func DefaultUpdate(app *App, msg Message) bool {
	if app == nil {
		return false
	}

	switch m := msg.(type) {
	case ResizeMsg:
		if app.host != nil {
			app.host.Resize(m.Width, m.Height)
		}
		if app.screen != nil {
			app.screen.Sync()
		}
		return true
	case KeyMsg:
		if m.Key == tcell.KeyCtrlC {
			return app.handleCommand(Quit{})
		}
		return app.dispatchMessage(msg)
	case QueueFlushMsg:
		return false
	case InvalidateMsg:
		return true
	default:
		return app.dispatchMessage(msg)
	}
}

func (a *App) dispatchMessage(msg Message) bool {
	handler, ok := a.root.(MessageHandler)
	if !ok {
		return false
	}
	result := handler.HandleMessage(msg)
	dirty := result.Handled
	for _, cmd := range result.Commands {
		if a.handleCommand(cmd) {
			dirty = true
		}
	}
	return dirty
}

func (a *App) handleCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case Quit:
		a.running = false
		a.cancelTasks()
		return false
	case SendMsg:
		if c.Message != nil {
			a.Post(c.Message)
		}
		return false
	case Effect:
		a.runEffect(c)
		return false
	default:
		if a.commandHandler != nil {
			return a.commandHandler(cmd)
		}
		return false
	}
}

// pollEvents stops once the screen is finalised.
func (a *App) pollEvents() {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		if msg := translate(ev); msg != nil {
			if !a.tryPost(msg) {
				a.logger.Warnf("runtime: message buffer full, dropped %T", msg)
			}
		}
	}
}

func (a *App) render() {
	a.screen.Clear()
	if a.root != nil {
		w, h := a.screen.Size()
		a.root.Render(a.screen, Rect{Width: w, Height: h})
	}
	a.screen.Show()
}

func (a *App) taskContext() context.Context {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if a.taskCtx != nil {
		return a.taskCtx
	}
	return context.Background()
}

func (a *App) cancelTasks() {
	a.pendingMu.Lock()
	cancel := a.taskCancel
	a.pendingMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *App) runEffect(effect Effect) {
	if a == nil || effect.Run == nil {
		return
	}
	go effect.Run(a.taskContext(), a.tryPost)
}

func (a *App) startPendingEffects() {
	a.pendingMu.Lock()
	effects := a.pendingEffects
	a.pendingEffects = nil
	a.pendingMu.Unlock()
	for _, effect := range effects {
		a.runEffect(effect)
	}
}

func (a *App) flushQueueIfNeeded(msg Message) bool {
	if a.stateQueue == nil {
		return false
	}
	if !shouldFlushQueue(a.flushPolicy, msg) {
		return false
	}
	a.resetQueue()
	return a.stateQueue.Flush() > 0
}
