// Package broadcaster provides non-blocking fan-out of values to
// listener channels.
package broadcaster

import "sync"

type Broadcaster[T any] struct {
	lock      sync.Mutex
	listeners map[chan<- T]struct{}
}

func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{listeners: map[chan<- T]struct{}{}}
}

// Len returns the number of currently registered listeners.
func (b *Broadcaster[T]) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.listeners)
}

// AddListener registers c to receive broadcast values.
func (b *Broadcaster[T]) AddListener(c chan<- T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.listeners[c] = struct{}{}
}

// RemoveListener unregisters c. Noop if c isn't registered.
func (b *Broadcaster[T]) RemoveListener(c chan<- T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.listeners, c)
}

// BroadcastNonblock sends v to every listener that's ready to receive.
func (b *Broadcaster[T]) BroadcastNonblock(v T) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for l := range b.listeners {
		select {
		case l <- v:
		default: // Ignore unresponsive listeners
		}
	}
}
