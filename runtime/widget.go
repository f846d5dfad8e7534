package runtime

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"
)

// Rect is a screen region in cells.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Widget draws itself into a region of the screen.
type Widget interface {
	Render(screen tcell.Screen, bounds Rect)
}

// HandleResult reports whether a widget consumed a message and any commands
// it emitted.
type HandleResult struct {
	Handled  bool
	Commands []Command
}

// Handled marks a message as consumed.
func Handled() HandleResult {
	return HandleResult{Handled: true}
}

// Unhandled lets a message fall through.
func Unhandled() HandleResult {
	return HandleResult{}
}

// WithCommand marks a message as consumed and emits cmd.
func WithCommand(cmd Command) HandleResult {
	return HandleResult{Handled: true, Commands: []Command{cmd}}
}

// MessageHandler is implemented by widgets that react to input.
type MessageHandler interface {
	HandleMessage(msg Message) HandleResult
}

// ChildProvider exposes child widgets for tree walks.
type ChildProvider interface {
	ChildWidgets() []Widget
}

// Bindable widgets receive app services before they are mounted.
type Bindable interface {
	Bind(services Services)
}

// Unbindable widgets release app services when removed.
type Unbindable interface {
	Unbind()
}

// Lifecycle is implemented by widgets that need mount/unmount hooks.
// The mount context carries the app's media store; see responsive.FromContext.
type Lifecycle interface {
	Mount(ctx context.Context) error
	Unmount()
}

// BindTree calls Bind on widgets that implement Bindable, parents first.
func BindTree(root Widget, services Services) {
	if services.isZero() {
		return
	}
	walk(root, false, func(w Widget) {
		if b, ok := w.(Bindable); ok {
			b.Bind(services)
		}
	})
}

// UnbindTree calls Unbind on widgets that implement Unbindable, children
// first.
func UnbindTree(root Widget) {
	walk(root, true, func(w Widget) {
		if u, ok := w.(Unbindable); ok {
			u.Unbind()
		}
	})
}

// MountTree calls Mount on widgets that implement Lifecycle and joins their
// errors. Every widget is mounted even if an earlier one fails.
func MountTree(ctx context.Context, root Widget) error {
	var errs []error
	walk(root, false, func(w Widget) {
		if m, ok := w.(Lifecycle); ok {
			if err := m.Mount(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// UnmountTree calls Unmount on widgets that implement Lifecycle, children
// first.
func UnmountTree(root Widget) {
	walk(root, true, func(w Widget) {
		if m, ok := w.(Lifecycle); ok {
			m.Unmount()
		}
	})
}

func walk(w Widget, childrenFirst bool, fn func(Widget)) {
	if w == nil {
		return
	}
	if !childrenFirst {
		fn(w)
	}
	if children, ok := w.(ChildProvider); ok {
		for _, child := range children.ChildWidgets() {
			walk(child, childrenFirst, fn)
		}
	}
	if childrenFirst {
		fn(w)
	}
}
