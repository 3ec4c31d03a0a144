package dedup

import "sync"

// lockEntry holds one in-flight key mutex and the number of waiters plus
// holder currently interested in it. Entries are removed when the count
// drops to zero, so the table only grows with concurrent distinct keys.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock is an in-process advisory lock table keyed by string. The upload
// path holds a key's lock for the duration of lookup + compute + store, which
// closes the window where two concurrent requests for the same never-seen key
// could both miss the cache and both invoke the external gateway.
//
// Safe for concurrent use. The zero value is not usable; call NewKeyLock.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewKeyLock constructs an empty lock table.
func NewKeyLock() *KeyLock {
	return &KeyLock{entries: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key, blocking while another goroutine holds it.
// It returns the release function; callers must invoke it exactly once,
// typically via defer, on both success and failure paths.
func (kl *KeyLock) Lock(key string) (unlock func()) {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		e = &lockEntry{}
		kl.entries[key] = e
	}
	e.refs++
	kl.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			kl.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(kl.entries, key)
			}
			kl.mu.Unlock()
		})
	}
}

// Len reports the number of keys currently tracked. Intended for tests.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}
