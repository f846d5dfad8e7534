package responsive

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when Subscribe gets a nil listener.
	ErrInvalidArgument = errors.New("responsive: invalid argument")

	// ErrMissingStore is returned by FromContext when no store was attached
	// to the context. It is an adapter configuration error, not a store error.
	ErrMissingStore = errors.New("responsive: no store in context; attach one with responsive.NewContext")

	// ErrListenerPanic matches every *ListenerError.
	ErrListenerPanic = errors.New("responsive: listener panicked")
)

// ListenerError reports a listener that panicked during a flush.
type ListenerError struct {
	// Index is the listener's position in the flush.
	Index int
	// Value is what the listener panicked with.
	Value any
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("responsive: listener %d panicked: %v", e.Index, e.Value)
}

// Is makes errors.Is(err, ErrListenerPanic) succeed.
func (e *ListenerError) Is(target error) bool {
	return target == ErrListenerPanic
}

// Unwrap returns the panic value when it was an error.
func (e *ListenerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
