package observable

import "sync"

// Event is a one-shot value: it is delivered on Publish and replayed to new
// subscribers only until Consume is called.
// Callbacks run with delivery held, so they must not Publish or Subscribe
// on the same Event.
type Event[T any] struct {
	// deliver orders Publish against Subscribe so a subscriber sees each
	// publish exactly once.
	deliver sync.Mutex

	mu      sync.Mutex
	v       T
	pending bool
	subs    *Value[T]
}

// NewEvent returns an empty Event.
func NewEvent[T any]() *Event[T] {
	return &Event[T]{subs: NewValue[T]()}
}

// Publish makes v pending and notifies subscribers.
func (e *Event[T]) Publish(v T) {
	e.deliver.Lock()
	defer e.deliver.Unlock()

	e.mu.Lock()
	e.v = v
	e.pending = true
	e.mu.Unlock()
	e.subs.Set(v)
}

// Pending returns the unconsumed value, if any.
func (e *Event[T]) Pending() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.v, e.pending
}

// Consume clears the pending value and returns it. Consuming an empty event
// is a no-op.
func (e *Event[T]) Consume() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.v, e.pending
	var zero T
	e.v = zero
	e.pending = false
	return v, ok
}

// Subscribe registers fn for future publishes and delivers the pending value
// immediately if there is one.
func (e *Event[T]) Subscribe(fn func(T)) (cancel func()) {
	e.deliver.Lock()
	defer e.deliver.Unlock()

	cancel = e.subs.subscribeNoReplay(fn)
	if v, ok := e.Pending(); ok {
		fn(v)
	}
	return cancel
}
