package service

import "sync"

// keyedMutex serializes work per key. Transitions read-then-write the
// aggregate non-atomically, so all mutating commands for one application id
// must be mutually excluded; commands on different ids stay independent.
// Locks are never released from the map - the id space is bounded by created
// applications.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
