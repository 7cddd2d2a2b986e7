// Package keylock provides a registry of named mutual-exclusion handles.
// Callers holding different keys never contend; callers holding the same key
// are fully serialized. It replaces the original design's global lock on a
// formatted description string.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out per-key locks on demand. The zero value is not usable;
// call New.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock function.
// Entries are reference counted so the registry does not grow with the key
// space.
func (r *Registry) Lock(key string) (unlock func()) {
	r.mu.Lock()
	e, ok := r.locks[key]
	if !ok {
		e = &entry{}
		r.locks[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
