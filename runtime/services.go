package runtime

import (
	"time"

	"github.com/odvcencio/furry-media/responsive"
	"github.com/odvcencio/furry-media/state"
)

// Services exposes app-level scheduling and messaging helpers.
type Services struct {
	app *App
}

// Services returns a service handle for the app.
func (a *App) Services() Services {
	return Services{app: a}
}

func (s Services) isZero() bool {
	return s.app == nil
}

// Scheduler returns the app state scheduler.
func (s Services) Scheduler() state.Scheduler {
	if s.app == nil {
		return nil
	}
	return s.app.StateScheduler()
}

// Invalidate requests a render pass.
func (s Services) Invalidate() {
	if s.app == nil {
		return
	}
	s.app.Invalidate()
}

// Store returns the app's media store, or nil before Run.
func (s Services) Store() responsive.Source {
	if s.app == nil || s.app.store == nil {
		return nil
	}
	return s.app.store
}

// After posts msg to the app loop once delay has passed.
func (s Services) After(delay time.Duration, msg Message) {
	if s.app == nil {
		return
	}
	s.app.After(delay, msg)
}
