// Package observable provides the value holders a UI binds to: a Value that
// replays its latest state to new subscribers, and an Event that is delivered
// until somebody consumes it.
package observable

import "sync"

// Value holds the latest state and fans changes out to subscribers.
// Callbacks run on the goroutine that called Set, outside the lock.
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	set  bool
	subs []subscriber[T]
	next int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// NewValue returns a Value with no state; subscribers see nothing until Set.
func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// Set stores v and notifies every subscriber.
func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	o.v = v
	o.set = true
	subs := make([]subscriber[T], len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Get returns the latest value, or the zero value if none was set.
func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Subscribe registers fn and replays the latest value to it if one exists.
// The returned func removes the subscription.
func (o *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	cancel, v, replay := o.add(fn)
	if replay {
		fn(v)
	}
	return cancel
}

func (o *Value[T]) subscribeNoReplay(fn func(T)) (cancel func()) {
	cancel, _, _ = o.add(fn)
	return cancel
}

func (o *Value[T]) add(fn func(T)) (cancel func(), v T, replay bool) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs = append(o.subs, subscriber[T]{id: id, fn: fn})
	v, replay = o.v, o.set
	o.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == id {
					o.subs = append(o.subs[:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
	return cancel, v, replay
}

// Map derives a Value that is recomputed from src on every change.
func Map[T, U any](src *Value[T], fn func(T) U) *Value[U] {
	dst := NewValue[U]()
	src.Subscribe(func(v T) { dst.Set(fn(v)) })
	return dst
}
