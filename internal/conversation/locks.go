package conversation

import "sync"

// keyedLocks serializes turns per conversation key. The state store has no
// optimistic concurrency control, so overlapping webhook deliveries for the
// same prospect must not interleave read-modify-write cycles.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

// Acquire blocks until the key's lock is held and returns the release
// function. Lock entries are dropped once the last holder releases.
func (k *keyedLocks) Acquire(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
