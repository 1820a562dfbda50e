package engine

import (
	"slices"
	"sync"
)

// notifier fans change notifications out to subscribed listeners. Listeners
// run synchronously on the goroutine that made the change, after the owning
// state's lock has been released.
type notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
}

// Subscribe registers fn to run after every state change and returns a
// function that removes it. Calling the returned function twice is a no-op.
func (n *notifier) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	if n.listeners == nil {
		n.listeners = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(), 0, len(ids))
	// Registration order.
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, n.listeners[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
