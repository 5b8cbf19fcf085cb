// Package observer fans typed events out to registered observers.
package observer

import (
	"context"
	"errors"
	"sync"
)

// Observer receives published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// Func adapts a plain function to Observer.
type Func[T any] func(context.Context, T) error

func (f Func[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Subject delivers each event to every attached observer in attach order.
// The zero value is ready to use.
type Subject[T any] struct {
	mu        sync.RWMutex
	observers []Observer[T]
}

func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	s := &Subject[T]{}
	s.Attach(observers...)
	return s
}

// Attach registers observers. Nil observers are ignored.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range observers {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Len reports how many observers are attached.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Publish notifies every observer even when some fail and returns their
// errors joined. A nil Subject publishes nothing.
func (s *Subject[T]) Publish(ctx context.Context, evt T) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	observers := append([]Observer[T](nil), s.observers...)
	s.mu.RUnlock()

	var errs []error
	for _, o := range observers {
		if err := o.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
