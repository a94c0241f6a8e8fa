package store

import "sync"

// Locks hands out one RW mutex per document key. Entries are never evicted; the key
// space is bounded by the number of users and groups.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.RWMutex)}
}

func (l *Locks) get(key string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.RWMutex{}
		l.locks[key] = m
	}
	return m
}

// Lock takes the exclusive lock for key and returns its release func.
func (l *Locks) Lock(key string) func() {
	m := l.get(key)
	m.Lock()
	return m.Unlock
}

// RLock takes the shared lock for key.
func (l *Locks) RLock(key string) func() {
	m := l.get(key)
	m.RLock()
	return m.RUnlock
}

// LockPair locks two keys in lexicographic order so concurrent pair writers cannot
// deadlock. Equal keys are locked once.
func (l *Locks) LockPair(a, b string) func() {
	if a == b {
		return l.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	unlockA := l.Lock(a)
	unlockB := l.Lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}

// DocKey builds the lock key for a document.
func DocKey(kind Kind, key string) string {
	return string(kind) + ":" + key
}
