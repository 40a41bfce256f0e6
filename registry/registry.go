// Package registry maps partner identifiers to the clients that talk to them.
package registry

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Registry is a keyed, concurrency safe collection of partner clients.
// Enumeration order is registration order. The lock only guards the map and
// the order slice; it is never held while a client is in use.
type Registry[K comparable, V any] struct {
	mu       sync.RWMutex
	clients  map[K]V
	order    []K
	onChange func(count int)
}

func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		clients: make(map[K]V),
	}
}

// SetOnChange installs a hook called with the new size after every mutation.
func (r *Registry[K, V]) SetOnChange(fn func(count int)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Register adds client under key. The first registration wins: a second call
// for the same key leaves the existing client in place and returns false.
func (r *Registry[K, V]) Register(key K, client V) bool {
	r.mu.Lock()
	if _, ok := r.clients[key]; ok {
		r.mu.Unlock()
		return false
	}
	r.clients[key] = client
	r.order = append(r.order, key)
	count, hook := len(r.order), r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(count)
	}
	return true
}

func (r *Registry[K, V]) TryGet(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[key]
	return client, ok
}

// All returns a snapshot of the registered clients.
func (r *Registry[K, V]) All() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]V, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.clients[key])
	}
	return out
}

type Entry[K comparable, V any] struct {
	Key    K
	Client V
}

// Entries is All with the keys, taken under one lock.
func (r *Registry[K, V]) Entries() []Entry[K, V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry[K, V], 0, len(r.order))
	for _, key := range r.order {
		out = append(out, Entry[K, V]{Key: key, Client: r.clients[key]})
	}
	return out
}

func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]K(nil), r.order...)
}

func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Remove unregisters key and hands the client back to the caller, who becomes
// responsible for closing it.
func (r *Registry[K, V]) Remove(key K) (V, bool) {
	r.mu.Lock()
	client, ok := r.clients[key]
	if !ok {
		r.mu.Unlock()
		return client, false
	}
	delete(r.clients, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	count, hook := len(r.order), r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(count)
	}
	return client, true
}

// Close empties the registry and closes every client that implements io.Closer.
func (r *Registry[K, V]) Close() error {
	r.mu.Lock()
	clients, order := r.clients, r.order
	r.clients = make(map[K]V)
	r.order = nil
	hook := r.onChange
	r.mu.Unlock()

	var errs []error
	for _, key := range order {
		if closer, ok := any(clients[key]).(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %v: %w", key, err))
			}
		}
	}
	if hook != nil {
		hook(0)
	}
	return errors.Join(errs...)
}
