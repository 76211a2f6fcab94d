package common

import "sync"

// Event is a list of synchronous subscribers. Handlers run on the goroutine
// that calls Emit, in subscription order, so notifications are observed in
// the same order as the mutations that produced them.
type Event[T any] struct {
	l        sync.Mutex
	nextID   int
	handlers []eventHandler[T]
}

type eventHandler[T any] struct {
	id int
	fn func(T)
}

// On registers fn and returns a function that removes it.
func (e *Event[T]) On(fn func(T)) func() {
	e.l.Lock()
	defer e.l.Unlock()

	id := e.nextID
	e.nextID++
	e.handlers = append(e.handlers, eventHandler[T]{id: id, fn: fn})

	return func() {
		e.l.Lock()
		defer e.l.Unlock()
		for i, h := range e.handlers {
			if h.id == id {
				e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every registered handler with v.
func (e *Event[T]) Emit(v T) {
	e.l.Lock()
	handlers := make([]eventHandler[T], len(e.handlers))
	copy(handlers, e.handlers)
	e.l.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// Len returns the number of subscribers.
func (e *Event[T]) Len() int {
	e.l.Lock()
	defer e.l.Unlock()
	return len(e.handlers)
}
