// Package locks provides a registry of mutexes keyed by id.
//
// The admission engine serializes all operations touching one event, and the
// ledger serializes appends for one user, by locking the corresponding key
// for the duration of the read-decide-write sequence. Different keys proceed
// fully in parallel.
package locks

import "sync"

// Registry hands out one mutex per key. Mutexes are never evicted; the key
// space is bounded by live events and members.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use. The returned
// function releases it.
func (r *Registry) Lock(key string) func() {
	r.mu.Lock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Size returns the number of keys with an allocated mutex.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
