// Package agent drives a runtime App on a simulated terminal. It is meant
// for tests and scripted checks: resize the terminal, send keys, wait for
// media matches and read back what was rendered.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/odvcencio/furry-media/log"
	"github.com/odvcencio/furry-media/responsive"
	"github.com/odvcencio/furry-media/runtime"
)

// Common errors returned by Agent methods.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrNotStarted   = errors.New("agent not started")
	ErrStarted      = errors.New("agent already started")
	ErrStoppedEarly = errors.New("app stopped before it was ready")
)

// Agent runs an App against a tcell simulation screen.
type Agent struct {
	mu       sync.Mutex
	app      *runtime.App
	screen   tcell.SimulationScreen
	width    int
	height   int
	tickRate time.Duration
	cancel   context.CancelFunc
	done     chan error
	err      error
	stopped  bool
}

// Config configures an Agent.
type Config struct {
	Root         runtime.Widget
	Queries      responsive.NamedQueries
	StoreOptions []responsive.Option
	Update       runtime.UpdateFunc
	Logger       log.Logger

	// Width and Height set the terminal dimensions (default 80x24).
	Width, Height int

	// TickRate is how long Tick waits for the loop to settle.
	// Default is 10ms.
	TickRate time.Duration
}

// New creates an Agent and the App it drives. The App does not run until
// Start.
func New(cfg Config) *Agent {
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	tickRate := cfg.TickRate
	if tickRate <= 0 {
		tickRate = 10 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop
	}

	screen := &sizedScreen{SimulationScreen: tcell.NewSimulationScreen(""), width: width, height: height}
	app := runtime.NewApp(runtime.AppConfig{
		Screen:       screen,
		Root:         cfg.Root,
		Queries:      cfg.Queries,
		StoreOptions: cfg.StoreOptions,
		Update:       cfg.Update,
		Logger:       logger,
	})
	return &Agent{
		app:      app,
		screen:   screen,
		width:    width,
		height:   height,
		tickRate: tickRate,
	}
}

// App returns the driven application.
func (a *Agent) App() *runtime.App {
	if a == nil {
		return nil
	}
	return a.app
}

// Screen returns the simulation screen.
func (a *Agent) Screen() tcell.SimulationScreen {
	if a == nil {
		return nil
	}
	return a.screen
}

// Start runs the App in the background and waits until its root is mounted.
func (a *Agent) Start(ctx context.Context) error {
	if a == nil {
		return ErrNotStarted
	}
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return ErrStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go func() { done <- a.app.Run(runCtx) }()

	select {
	case <-a.app.Ready():
		return nil
	case err := <-done:
		cancel()
		a.mu.Lock()
		a.err = err
		a.stopped = true
		a.mu.Unlock()
		if err == nil {
			err = ErrStoppedEarly
		}
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Stop cancels the App and waits for Run to return. A cancellation error
// from Run is not reported.
func (a *Agent) Stop() error {
	if a == nil {
		return ErrNotStarted
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done == nil {
		return ErrNotStarted
	}
	a.cancel()
	if !a.stopped {
		a.err = <-a.done
		a.stopped = true
	}
	if errors.Is(a.err, context.Canceled) {
		return nil
	}
	return a.err
}

// Store returns the App's media store once started.
func (a *Agent) Store() responsive.Source {
	if !a.ready() {
		return nil
	}
	return a.app.Store()
}

// Resize changes the simulated terminal size and feeds it to the loop.
func (a *Agent) Resize(width, height int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.width, a.height = width, height
	a.mu.Unlock()
	a.screen.SetSize(width, height)
	a.app.Post(runtime.ResizeMsg{Width: width, Height: height})
}

// Key sends a key press to the loop.
func (a *Agent) Key(key tcell.Key, r rune) {
	if a == nil {
		return
	}
	a.app.Post(runtime.KeyMsg{Key: key, Rune: r})
}

// Type sends each rune of text as a key press.
func (a *Agent) Type(text string) {
	for _, r := range text {
		a.Key(tcell.KeyRune, r)
	}
}

// Tick requests a render and waits for the loop to process it.
func (a *Agent) Tick() {
	if a == nil {
		return
	}
	a.app.Invalidate()
	time.Sleep(a.tickRate)
}

// Snapshot returns the rendered text and the store state.
func (a *Agent) Snapshot() Snapshot {
	if a == nil {
		return Snapshot{}
	}
	a.mu.Lock()
	width, height := a.width, a.height
	a.mu.Unlock()
	snap := Snapshot{
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Text:      a.CaptureText(),
	}
	if store := a.Store(); store != nil {
		snap.State = store.GetState()
		if s, ok := store.(*responsive.Store); ok {
			snap.StoreID = s.ID()
		}
	}
	return snap
}

// SnapshotJSON returns Snapshot encoded as JSON.
func (a *Agent) SnapshotJSON() ([]byte, error) {
	return json.Marshal(a.Snapshot())
}

// ContainsText checks if the given text appears on screen.
func (a *Agent) ContainsText(text string) bool {
	x, _ := a.FindText(text)
	return x >= 0
}

// FindText returns the position of text on screen, or (-1, -1) if not found.
func (a *Agent) FindText(text string) (x, y int) {
	if a == nil || text == "" {
		return -1, -1
	}
	for row, line := range a.lines() {
		if col := strings.Index(line, text); col >= 0 {
			return len([]rune(line[:col])), row
		}
	}
	return -1, -1
}

// CaptureText returns the screen contents, one line per row with trailing
// blanks removed.
func (a *Agent) CaptureText() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.lines(), "\n")
}

// WaitFor ticks until cond holds for a snapshot or timeout elapses.
func (a *Agent) WaitFor(cond func(Snapshot) bool, timeout time.Duration) error {
	if !a.ready() {
		return ErrNotStarted
	}
	deadline := time.Now().Add(timeout)
	for {
		if cond(a.Snapshot()) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		a.Tick()
	}
}

// WaitForText waits until text is on screen.
func (a *Agent) WaitForText(text string, timeout time.Duration) error {
	return a.WaitFor(func(s Snapshot) bool {
		return strings.Contains(s.Text, text)
	}, timeout)
}

// WaitForMatch waits until the store reports matches for key.
func (a *Agent) WaitForMatch(key string, matches bool, timeout time.Duration) error {
	return a.WaitFor(func(s Snapshot) bool {
		return s.State.Known(key) && s.State.Matches(key) == matches
	}, timeout)
}

func (a *Agent) ready() bool {
	if a == nil {
		return false
	}
	select {
	case <-a.app.Ready():
		return true
	default:
		return false
	}
}

func (a *Agent) lines() []string {
	cells, width, height := a.screen.GetContents()
	lines := make([]string, 0, height)
	for y := 0; y < height; y++ {
		var b strings.Builder
		for x := 0; x < width; x++ {
			i := y*width + x
			if i >= len(cells) {
				break
			}
			runes := cells[i].Runes
			if len(runes) == 0 || runes[0] == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(string(runes))
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return lines
}

// sizedScreen applies the configured size after Init, which resets a
// simulation screen to its default dimensions.
type sizedScreen struct {
	tcell.SimulationScreen
	width, height int
}

func (s *sizedScreen) Init() error {
	if err := s.SimulationScreen.Init(); err != nil {
		return err
	}
	s.SimulationScreen.SetSize(s.width, s.height)
	return nil
}
